package authcore

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/drithme/authcore/password"
	"github.com/drithme/authcore/session"
	"github.com/drithme/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. UserStore and a config Secret are required;
// everything else has a working default. A Builder is single-use.
type Builder struct {
	config     Config
	store      UserStore
	email      EmailSender
	bot        BotVerifier
	oauth      OAuthExchanger
	redis      *redis.Client
	httpClient *http.Client
	logger     *slog.Logger

	built bool
}

// New starts a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserStore wires the account repository. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithEmailSender wires the verification email collaborator. Without one,
// token issue still happens but delivery is skipped.
func (b *Builder) WithEmailSender(sender EmailSender) *Builder {
	b.email = sender
	return b
}

// WithBotVerifier wires the bot-protection collaborator consulted on
// password logins (skipped in TestMode).
func (b *Builder) WithBotVerifier(v BotVerifier) *Builder {
	b.bot = v
	return b
}

// WithOAuthExchanger wires the OAuth code-exchange collaborator backing
// the OAuth strategies.
func (b *Builder) WithOAuthExchanger(x OAuthExchanger) *Builder {
	b.oauth = x
	return b
}

// WithRedis stores pending second-factor challenges in Redis so several
// instances can share one login's password step and TOTP step. Without a
// client the challenges live in process memory.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient overrides the breach-screen HTTP client, mainly for
// tests pointed at a local range endpoint.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the structured logger used for degrade paths.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("user store required")
	}

	hasher, err := password.NewHasher(b.config.Password.Cost)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewManager([]byte(b.config.Secret), b.config.Verification.TTL)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewCodec([]byte(b.config.Secret), b.config.Session.TTL, b.config.TOTP.Issuer)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   b.config,
		store:    b.store,
		email:    b.email,
		bot:      b.bot,
		oauth:    b.oauth,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		totp:     newTOTPManager(b.config.TOTP, b.config.Secret),
		policy:   DefaultPolicy(),
		metrics:  newMetrics(b.config.Metrics),
		logger:   b.logger,
	}

	if b.config.Breach.Enabled {
		client := b.httpClient
		if client == nil && b.config.Breach.Timeout > 0 {
			client = &http.Client{Timeout: b.config.Breach.Timeout}
		}
		engine.breach = NewBreachScreen(b.config.Breach.Endpoint, client)
	}

	if b.redis != nil {
		engine.challenges = newRedisChallengeStore(b.redis)
	} else {
		engine.challenges = newMemoryChallengeStore()
	}

	b.built = true
	return engine, nil
}
