// Package twitch implements ports.Platform on top of the Twitch Helix API.
//
// The broadcast title, category (game), language and delay are channel
// properties on Twitch. ApplySettings records the channel information it
// replaces so that Stop can put it back when an attempt is rolled back.
package twitch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/nicklaw5/helix/v2"

	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/internal/ports"
	"github.com/bft-labs/golive/pkg/log"
)

// ID is the platform identifier used in overrides and step names.
const ID domain.PlatformID = "twitch"

const (
	fieldLanguage = "language"
	fieldDelay    = "delay"

	maxTitleLength = 140
	maxDelay       = 900
)

// Config holds the Helix credentials for one channel.
type Config struct {
	ClientID      string
	AccessToken   string
	BroadcasterID string

	// APIBaseURL overrides the Helix endpoint (tests).
	APIBaseURL string
}

// Platform is the Twitch adapter. The helix client is not safe for
// concurrent use, so every call goes through mu.
type Platform struct {
	broadcasterID string
	logger        ports.Logger

	mu       sync.Mutex
	client   *helix.Client
	games    map[string]string // category name -> game ID
	previous *helix.ChannelInformation
}

// New creates a Twitch platform adapter.
func New(cfg Config, client ports.HTTPClient, logger ports.Logger) (*Platform, error) {
	if cfg.ClientID == "" || cfg.BroadcasterID == "" {
		return nil, fmt.Errorf("%w: twitch client_id and broadcaster_id are required", domain.ErrInvalidConfig)
	}

	opts := &helix.Options{
		ClientID:        cfg.ClientID,
		UserAccessToken: cfg.AccessToken,
		APIBaseURL:      cfg.APIBaseURL,
	}
	if client != nil {
		opts.HTTPClient = client
	}
	hc, err := helix.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	return &Platform{
		broadcasterID: cfg.BroadcasterID,
		logger:        logger,
		client:        hc,
		games:         make(map[string]string),
	}, nil
}

// ID returns "twitch".
func (p *Platform) ID() domain.PlatformID { return ID }

// Schema declares the Twitch exclusive fields.
func (p *Platform) Schema() domain.FieldSchema {
	return domain.FieldSchema{
		fieldLanguage: {Kind: domain.KindString},
		fieldDelay:    {Kind: domain.KindInt, Min: 0, Max: maxDelay},
	}
}

// Prepopulate reads the channel information and whether the channel is live.
// It opens a new session, so a channel snapshot kept by an earlier session
// that went live is forgotten.
func (p *Platform) Prepopulate(ctx context.Context) (domain.PlatformDefaults, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlatformDefaults{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.previous = nil

	info, err := p.channelInfo()
	if err != nil {
		return domain.PlatformDefaults{}, err
	}

	resp, err := p.client.GetStreams(&helix.StreamsParams{UserIDs: []string{p.broadcasterID}})
	if err != nil {
		return domain.PlatformDefaults{}, fmt.Errorf("get streams: %w", err)
	}
	if err := checkResponse(resp.ResponseCommon); err != nil {
		return domain.PlatformDefaults{}, fmt.Errorf("get streams: %w", err)
	}

	if info.GameName != "" && info.GameID != "" {
		p.games[strings.ToLower(info.GameName)] = info.GameID
	}

	fields := map[string]any{fieldDelay: info.Delay}
	if info.BroadcasterLanguage != "" {
		fields[fieldLanguage] = info.BroadcasterLanguage
	}
	return domain.PlatformDefaults{
		Title:    info.Title,
		Category: info.GameName,
		Fields:   fields,
		Live:     len(resp.Data.Streams) > 0,
	}, nil
}

// Validate checks the title length and resolves the category to a game.
func (p *Platform) Validate(ctx context.Context, s domain.PlatformSettings) error {
	var problems []domain.FieldError
	if utf8.RuneCountInString(s.Title) > maxTitleLength {
		problems = append(problems, domain.FieldError{
			Platform: ID,
			Field:    domain.FieldTitle,
			Message:  fmt.Sprintf("must be at most %d characters", maxTitleLength),
		})
	}

	if s.Category != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.mu.Lock()
		_, err := p.gameID(s.Category)
		p.mu.Unlock()

		switch {
		case errors.Is(err, errUnknownGame):
			problems = append(problems, domain.FieldError{
				Platform: ID,
				Field:    domain.FieldCategory,
				Message:  fmt.Sprintf("unknown category %q", s.Category),
			})
		case err != nil:
			return err
		}
	}

	if len(problems) > 0 {
		return &domain.ValidationError{Problems: problems}
	}
	return nil
}

// ApplySettings updates the channel information. The first apply of a
// session remembers what it replaced.
func (p *Platform) ApplySettings(ctx context.Context, s domain.PlatformSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.previous == nil {
		info, err := p.channelInfo()
		if err != nil {
			return err
		}
		p.previous = &info
	}

	params := &helix.EditChannelInformationParams{
		BroadcasterID: p.broadcasterID,
		Title:         s.Title,
	}
	if s.Category != "" {
		id, err := p.gameID(s.Category)
		if err != nil {
			return err
		}
		params.GameID = id
	}
	if lang, ok := s.Fields[fieldLanguage].(string); ok {
		params.BroadcasterLanguage = lang
	}
	if delay, ok := s.Fields[fieldDelay].(int); ok {
		params.Delay = delay
	}

	if err := p.edit(params); err != nil {
		return err
	}
	p.logger.Info("twitch channel updated",
		log.Platform(string(ID)),
		ports.String("title", s.Title),
		ports.String("game_id", params.GameID))
	return nil
}

// Stop restores the channel information replaced by ApplySettings.
func (p *Platform) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.previous == nil {
		return nil
	}
	prev := p.previous
	err := p.edit(&helix.EditChannelInformationParams{
		BroadcasterID:       p.broadcasterID,
		GameID:              prev.GameID,
		BroadcasterLanguage: prev.BroadcasterLanguage,
		Title:               prev.Title,
		Delay:               prev.Delay,
	})
	if err != nil {
		return fmt.Errorf("restore channel information: %w", err)
	}
	p.previous = nil
	p.logger.Info("twitch channel restored", log.Platform(string(ID)))
	return nil
}

var errUnknownGame = errors.New("unknown game")

// gameID resolves a category name. Must be called with mu held.
func (p *Platform) gameID(name string) (string, error) {
	key := strings.ToLower(name)
	if id, ok := p.games[key]; ok {
		return id, nil
	}

	resp, err := p.client.GetGames(&helix.GamesParams{Names: []string{name}})
	if err != nil {
		return "", fmt.Errorf("get games: %w", err)
	}
	if err := checkResponse(resp.ResponseCommon); err != nil {
		return "", fmt.Errorf("get games: %w", err)
	}
	if len(resp.Data.Games) == 0 {
		return "", fmt.Errorf("%w: %s", errUnknownGame, name)
	}

	id := resp.Data.Games[0].ID
	p.games[key] = id
	return id, nil
}

// channelInfo fetches the broadcaster's channel. Must be called with mu held.
func (p *Platform) channelInfo() (helix.ChannelInformation, error) {
	resp, err := p.client.GetChannelInformation(&helix.GetChannelInformationParams{
		BroadcasterIDs: []string{p.broadcasterID},
	})
	if err != nil {
		return helix.ChannelInformation{}, fmt.Errorf("get channel information: %w", err)
	}
	if err := checkResponse(resp.ResponseCommon); err != nil {
		return helix.ChannelInformation{}, fmt.Errorf("get channel information: %w", err)
	}
	if len(resp.Data.Channels) == 0 {
		return helix.ChannelInformation{}, fmt.Errorf("channel %s not found", p.broadcasterID)
	}
	return resp.Data.Channels[0], nil
}

func (p *Platform) edit(params *helix.EditChannelInformationParams) error {
	resp, err := p.client.EditChannelInformation(params)
	if err != nil {
		return fmt.Errorf("edit channel information: %w", err)
	}
	if err := checkResponse(resp.ResponseCommon); err != nil {
		return fmt.Errorf("edit channel information: %w", err)
	}
	return nil
}

// APIError is a non-2xx Helix answer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, message: %s", e.StatusCode, e.Message)
}

func checkResponse(rc helix.ResponseCommon) error {
	if rc.StatusCode/100 == 2 {
		return nil
	}
	return &APIError{StatusCode: rc.StatusCode, Message: rc.ErrorMessage}
}
