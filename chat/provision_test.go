package chat

import (
	"context"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	escrow "github.com/Liltopzj/wealthescrow-bot"
)

type fakePrincipal struct {
	createErr  error
	addErr     error
	promoteErr error
	exportErr  error
	createLErr error

	createdTitle  string
	addedUser     string
	promotedUser  string
	grantedRights AdminRights
}

func (f *fakePrincipal) CreateChannel(ctx context.Context, title, about string) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.createdTitle = title
	return 42, nil
}

func (f *fakePrincipal) AddMember(ctx context.Context, chatID int64, username string) error {
	f.addedUser = username
	return f.addErr
}

func (f *fakePrincipal) PromoteMember(ctx context.Context, chatID int64, username string, rights AdminRights) error {
	f.promotedUser = username
	f.grantedRights = rights
	return f.promoteErr
}

func (f *fakePrincipal) ExportInviteLink(ctx context.Context, chatID int64) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	return "https://t.me/+exported", nil
}

func (f *fakePrincipal) CreateInviteLink(ctx context.Context, chatID int64) (string, error) {
	if f.createLErr != nil {
		return "", f.createLErr
	}
	return "https://t.me/+created", nil
}

func newTestProvisioner(f *fakePrincipal) *Provisioner {
	return NewProvisioner(Config{
		BaseName:    "Escrow",
		About:       "Escrow room",
		BotUsername: "WealthEscrowBot",
	}, f)
}

func TestProvisionHappyPath(t *testing.T) {
	f := &fakePrincipal{}
	h, steps, err := newTestProvisioner(f).Provision(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 42, h.ChatID)
	require.Equal(t, f.createdTitle, h.Title)
	require.Equal(t, "https://t.me/+exported", h.InviteLink)
	require.Equal(t, "WealthEscrowBot", f.addedUser)
	require.Equal(t, "WealthEscrowBot", f.promotedUser)
	require.False(t, f.grantedRights.PromoteMembers)
	require.True(t, f.grantedRights.DeleteMessages)
	require.Len(t, steps, 3)
}

func TestProvisionSurvivesBestEffortFailures(t *testing.T) {
	f := &fakePrincipal{
		addErr:     errors.New("bot already in chat"),
		promoteErr: errors.New("not enough rights"),
	}
	h, steps, err := newTestProvisioner(f).Provision(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, h.InviteLink)

	byStep := map[string]StepResult{}
	for _, s := range steps {
		byStep[s.Step] = s
	}
	require.True(t, byStep["add_bot"].BestEffort)
	require.Error(t, byStep["add_bot"].Err)
	require.True(t, byStep["promote_bot"].BestEffort)
	require.Error(t, byStep["promote_bot"].Err)
	require.False(t, byStep["invite_link"].BestEffort)
	require.NoError(t, byStep["invite_link"].Err)
}

func TestProvisionCreateChannelIsFatal(t *testing.T) {
	f := &fakePrincipal{createErr: errors.New("flood wait")}
	_, _, err := newTestProvisioner(f).Provision(context.Background())
	require.ErrorIs(t, err, escrow.ErrProvisionFailed)
}

func TestProvisionInviteLinkFallback(t *testing.T) {
	f := &fakePrincipal{exportErr: errors.New("export unsupported")}
	h, _, err := newTestProvisioner(f).Provision(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://t.me/+created", h.InviteLink)
}

func TestProvisionFailsWhenBothInviteCallsFail(t *testing.T) {
	f := &fakePrincipal{
		exportErr:  errors.New("export unsupported"),
		createLErr: errors.New("create unsupported"),
	}
	_, _, err := newTestProvisioner(f).Provision(context.Background())
	require.ErrorIs(t, err, escrow.ErrProvisionFailed)
}

func TestNewTitleShape(t *testing.T) {
	re := regexp.MustCompile(`^Escrow #[a-z]{5}$`)
	title, err := NewTitle("Escrow")
	require.NoError(t, err)
	require.Regexp(t, re, title)
}

func TestTitleSuffixRandomnessSanity(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		title, err := NewTitle("Escrow")
		require.NoError(t, err)
		seen[title] = true
	}
	// Not a uniqueness guarantee, just that the generator is not stuck.
	require.Greater(t, len(seen), 1)
}
