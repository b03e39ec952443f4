// Package chat provisions one isolated group per escrow transaction.
//
// Channel creation runs under the principal identity, never the bot's
// own: channel-creation authority and bot authority are separate
// credentials on purpose, so a leaked bot token cannot open rooms.
package chat

import (
	"context"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	escrow "github.com/Liltopzj/wealthescrow-bot"
)

const suffixLength = 5

// ChannelHandle identifies a provisioned escrow group. The invite link
// is regenerable by re-export and carries no cross-call uniqueness.
type ChannelHandle struct {
	ChatID     int64
	Title      string
	InviteLink string
}

// AdminRights is the capability set granted to the bot inside a
// provisioned group. PromoteMembers stays false: the bot moderates, it
// does not mint new admins.
type AdminRights struct {
	ManageChat       bool
	DeleteMessages   bool
	ManageVideoChats bool
	InviteUsers      bool
	PinMessages      bool
	RestrictMembers  bool
	ChangeInfo       bool
	PromoteMembers   bool
}

func BotAdminRights() AdminRights {
	return AdminRights{
		ManageChat:       true,
		DeleteMessages:   true,
		ManageVideoChats: true,
		InviteUsers:      true,
		PinMessages:      true,
		RestrictMembers:  true,
		ChangeInfo:       true,
		PromoteMembers:   false,
	}
}

// Principal is the capability surface of the channel-creating identity.
type Principal interface {
	CreateChannel(ctx context.Context, title, about string) (int64, error)
	AddMember(ctx context.Context, chatID int64, username string) error
	PromoteMember(ctx context.Context, chatID int64, username string, rights AdminRights) error
	ExportInviteLink(ctx context.Context, chatID int64) (string, error)
	CreateInviteLink(ctx context.Context, chatID int64) (string, error)
}

// StepResult reports one provisioning step. BestEffort marks steps
// whose failure does not abort the operation, making the fatal policy
// visible at the call site instead of inside a swallowed catch.
type StepResult struct {
	Step       string
	BestEffort bool
	Err        error
}

type Config struct {
	BaseName    string
	About       string
	BotUsername string
}

type Provisioner struct {
	cfg       Config
	principal Principal
	l         *zap.Logger
}

func NewProvisioner(cfg Config, principal Principal) *Provisioner {
	return &Provisioner{
		cfg:       cfg,
		principal: principal,
		l:         zap.L().Named("channel_provisioner"),
	}
}

// Provision creates a fresh escrow group and returns its handle along
// with per-step results. Channel existence and a shareable invite link
// are essential; bot membership and bot privileges degrade gracefully.
func (p *Provisioner) Provision(ctx context.Context) (*ChannelHandle, []StepResult, error) {
	title, err := NewTitle(p.cfg.BaseName)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Failed generate title")
	}

	chatID, err := p.principal.CreateChannel(ctx, title, p.cfg.About)
	if err != nil {
		p.l.Warn("create channel", zap.String("title", title), zap.Error(err))
		return nil, nil, errors.Wrapf(escrow.ErrProvisionFailed, "create channel: %v", err)
	}

	var steps []StepResult

	err = p.principal.AddMember(ctx, chatID, p.cfg.BotUsername)
	steps = append(steps, StepResult{Step: "add_bot", BestEffort: true, Err: err})
	if err != nil {
		// Already a member, or direct add disallowed. The invite link
		// remains the fallback path into the group.
		p.l.Warn("add bot to channel", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	err = p.principal.PromoteMember(ctx, chatID, p.cfg.BotUsername, BotAdminRights())
	steps = append(steps, StepResult{Step: "promote_bot", BestEffort: true, Err: err})
	if err != nil {
		p.l.Warn("promote bot in channel", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	link, err := p.principal.ExportInviteLink(ctx, chatID)
	if err != nil {
		p.l.Warn("export invite link", zap.Int64("chat_id", chatID), zap.Error(err))
		link, err = p.principal.CreateInviteLink(ctx, chatID)
		if err != nil {
			p.l.Warn("create invite link", zap.Int64("chat_id", chatID), zap.Error(err))
			return nil, steps, errors.Wrapf(escrow.ErrProvisionFailed, "invite link: %v", err)
		}
	}
	steps = append(steps, StepResult{Step: "invite_link", BestEffort: false})

	p.l.Info(
		"provisioned escrow channel",
		zap.Int64("chat_id", chatID),
		zap.String("title", title),
	)
	return &ChannelHandle{ChatID: chatID, Title: title, InviteLink: link}, steps, nil
}

// NewTitle builds a display title "<base> #<suffix>" with a fresh
// random 5-letter lowercase suffix to dodge collisions.
func NewTitle(base string) (string, error) {
	suffix, err := newTitleSuffix()
	if err != nil {
		return "", err
	}
	return base + " #" + suffix, nil
}

func newTitleSuffix() (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, suffixLength)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", errors.Wrap(err, "Failed read random")
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b), nil
}
