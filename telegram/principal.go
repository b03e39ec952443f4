package telegram

import (
	"context"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Liltopzj/wealthescrow-bot/chat"
)

// Principal is the channel-creating identity: a logged-in user session
// over MTProto. Bot tokens cannot create chats, which is why this
// credential exists at all; it is never used for messaging.
type Principal struct {
	client *telegram.Client
	l      *zap.Logger
	ready  chan struct{}

	mu     sync.Mutex
	api    *tg.Client
	hashes map[int64]int64 // channel id -> access hash
}

func NewPrincipal(appID int, appHash, sessionFile string) *Principal {
	return &Principal{
		client: telegram.NewClient(appID, appHash, telegram.Options{
			SessionStorage: &session.FileStorage{Path: sessionFile},
		}),
		l:      zap.L().Named("telegram_principal"),
		ready:  make(chan struct{}),
		hashes: make(map[int64]int64),
	}
}

// Run holds the MTProto connection open until ctx ends. The session
// file must already be authorized; interactive login is a deployment
// step, not a runtime one.
func (p *Principal) Run(ctx context.Context) error {
	return p.client.Run(ctx, func(ctx context.Context) error {
		status, err := p.client.Auth().Status(ctx)
		if err != nil {
			return errors.Wrap(err, "Failed get auth status")
		}
		if !status.Authorized {
			return errors.New("principal session not authorized, log the user session in first")
		}
		p.mu.Lock()
		p.api = p.client.API()
		p.mu.Unlock()
		close(p.ready)
		p.l.Info("principal session ready")
		<-ctx.Done()
		return ctx.Err()
	})
}

// Ready closes once the session is connected and authorized.
func (p *Principal) Ready() <-chan struct{} { return p.ready }

func (p *Principal) apiClient() (*tg.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.api == nil {
		return nil, errors.New("principal session not connected")
	}
	return p.api, nil
}

// CreateChannel creates a fresh supergroup and remembers its access
// hash for the follow-up calls.
func (p *Principal) CreateChannel(ctx context.Context, title, about string) (int64, error) {
	api, err := p.apiClient()
	if err != nil {
		return 0, err
	}
	updates, err := api.ChannelsCreateChannel(ctx, &tg.ChannelsCreateChannelRequest{
		Megagroup: true,
		Title:     title,
		About:     about,
	})
	if err != nil {
		return 0, errors.Wrap(err, "Failed create channel")
	}
	ch, err := firstChannel(updates)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.hashes[ch.ID] = ch.AccessHash
	p.mu.Unlock()
	return ch.ID, nil
}

func (p *Principal) AddMember(ctx context.Context, chatID int64, username string) error {
	api, err := p.apiClient()
	if err != nil {
		return err
	}
	inCh, err := p.inputChannel(chatID)
	if err != nil {
		return err
	}
	user, err := p.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	_, err = api.ChannelsInviteToChannel(ctx, &tg.ChannelsInviteToChannelRequest{
		Channel: inCh,
		Users: []tg.InputUserClass{
			&tg.InputUser{UserID: user.ID, AccessHash: user.AccessHash},
		},
	})
	if err != nil {
		return errors.Wrap(err, "Failed invite to channel")
	}
	return nil
}

func (p *Principal) PromoteMember(ctx context.Context, chatID int64, username string, rights chat.AdminRights) error {
	api, err := p.apiClient()
	if err != nil {
		return err
	}
	inCh, err := p.inputChannel(chatID)
	if err != nil {
		return err
	}
	user, err := p.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	_, err = api.ChannelsEditAdmin(ctx, &tg.ChannelsEditAdminRequest{
		Channel: inCh,
		UserID:  &tg.InputUser{UserID: user.ID, AccessHash: user.AccessHash},
		AdminRights: tg.ChatAdminRights{
			Other:          rights.ManageChat,
			DeleteMessages: rights.DeleteMessages,
			ManageCall:     rights.ManageVideoChats,
			InviteUsers:    rights.InviteUsers,
			PinMessages:    rights.PinMessages,
			BanUsers:       rights.RestrictMembers,
			ChangeInfo:     rights.ChangeInfo,
			AddAdmins:      rights.PromoteMembers,
		},
		Rank: "bot",
	})
	if err != nil {
		return errors.Wrap(err, "Failed edit admin")
	}
	return nil
}

// ExportInviteLink exports the channel's permanent multi-use link.
func (p *Principal) ExportInviteLink(ctx context.Context, chatID int64) (string, error) {
	return p.inviteLink(ctx, chatID, true)
}

// CreateInviteLink creates a fresh additional link, the fallback when
// export is refused.
func (p *Principal) CreateInviteLink(ctx context.Context, chatID int64) (string, error) {
	return p.inviteLink(ctx, chatID, false)
}

func (p *Principal) inviteLink(ctx context.Context, chatID int64, permanent bool) (string, error) {
	api, err := p.apiClient()
	if err != nil {
		return "", err
	}
	hash, err := p.accessHash(chatID)
	if err != nil {
		return "", err
	}
	invite, err := api.MessagesExportChatInvite(ctx, &tg.MessagesExportChatInviteRequest{
		Peer:                  &tg.InputPeerChannel{ChannelID: chatID, AccessHash: hash},
		LegacyRevokePermanent: permanent,
	})
	if err != nil {
		return "", errors.Wrap(err, "Failed export chat invite")
	}
	exported, ok := invite.(*tg.ChatInviteExported)
	if !ok {
		return "", errors.Errorf("unexpected invite type %T", invite)
	}
	return exported.Link, nil
}

func (p *Principal) resolveUser(ctx context.Context, username string) (*tg.User, error) {
	api, err := p.apiClient()
	if err != nil {
		return nil, err
	}
	peer, err := api.ContactsResolveUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, "Failed resolve username")
	}
	for _, u := range peer.Users {
		if user, ok := u.(*tg.User); ok {
			return user, nil
		}
	}
	return nil, errors.Errorf("username %q did not resolve to a user", username)
}

func (p *Principal) inputChannel(chatID int64) (*tg.InputChannel, error) {
	hash, err := p.accessHash(chatID)
	if err != nil {
		return nil, err
	}
	return &tg.InputChannel{ChannelID: chatID, AccessHash: hash}, nil
}

func (p *Principal) accessHash(chatID int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hash, ok := p.hashes[chatID]
	if !ok {
		return 0, errors.Errorf("unknown channel %d", chatID)
	}
	return hash, nil
}

func firstChannel(updates tg.UpdatesClass) (*tg.Channel, error) {
	var chats []tg.ChatClass
	switch u := updates.(type) {
	case *tg.Updates:
		chats = u.Chats
	case *tg.UpdatesCombined:
		chats = u.Chats
	}
	for _, c := range chats {
		if ch, ok := c.(*tg.Channel); ok {
			return ch, nil
		}
	}
	return nil, errors.New("no channel in create response")
}
