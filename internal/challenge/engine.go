// File: engine.go
package challenge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"captchaAuth/internal/render"
	"captchaAuth/internal/store"
)

// Verification outcomes as handed to a Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeMismatch = "mismatch"
	OutcomeUnknown  = "unknown"
	OutcomeExpired  = "expired"
	OutcomeConsumed = "consumed"
)

// Outcome describes one verification attempt. It never carries the answer.
type Outcome struct {
	ChallengeID string
	Kind        Kind
	Result      string
	At          time.Time
}

// Recorder receives every verification outcome, e.g. for an audit log.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// OutcomeOf classifies a Verify error.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrAlreadyConsumed):
		return OutcomeConsumed
	case errors.Is(err, ErrExpired):
		return OutcomeExpired
	case errors.Is(err, ErrUnknown):
		return OutcomeUnknown
	}
	return OutcomeMismatch
}

// Pass is what a pass token stands for: a challenge solved by its holder.
type Pass struct {
	ChallengeID string
	Kind        Kind
}

// Engine ties generation, the pending-solution table and verification together.
type Engine struct {
	cfg      Config
	table    *store.Table[Solution]
	passes   *store.Table[Pass]
	gen      generator
	log      *zap.Logger
	recorder Recorder
	newID    func() string

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Engine)

// WithRand sets the random source every challenge is derived from.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSource sets where grid imagery comes from. Defaults to render.Pictograms.
func WithSource(s render.Source) Option {
	return func(e *Engine) { e.gen.cells = s }
}

// WithBackgrounds sets where puzzle backgrounds come from. Without one every
// background is generated.
func WithBackgrounds(s render.Source) Option {
	return func(e *Engine) { e.gen.backgrounds = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithPassTable sets where pass tokens are kept. Defaults to a private table
// that is never swept.
func WithPassTable(t *store.Table[Pass]) Option {
	return func(e *Engine) { e.passes = t }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// New builds an Engine over table. The caller owns the table's lifecycle.
func New(cfg Config, table *store.Table[Solution], opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		table: table,
		gen:   generator{cells: render.Pictograms{}},
		log:   zap.NewNop(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.passes == nil {
		e.passes = store.New[Pass]()
	}
	return e
}

// Config returns the engine defaults.
func (e *Engine) Config() Config {
	return e.cfg
}

// childRand derives a private generator for one request so concurrent
// requests never share a *rand.Rand.
func (e *Engine) childRand() *rand.Rand {
	e.mu.Lock()
	seed := e.rng.Int63()
	e.mu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// Generate issues a challenge of the given kind and retains its solution.
func (e *Engine) Generate(ctx context.Context, kind Kind, ov Overrides) (*Challenge, error) {
	c, _, err := e.generate(ctx, kind, ov)
	return c, err
}

func (e *Engine) generate(ctx context.Context, kind Kind, ov Overrides) (*Challenge, Solution, error) {
	cfg, err := e.cfg.apply(ov)
	if err != nil {
		return nil, nil, err
	}
	payload, sol, err := e.gen.build(ctx, kind, cfg, e.childRand())
	if err != nil {
		e.log.Warn("challenge generation failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, nil, err
	}

	id := e.newID()
	if err := e.table.Put(id, sol, cfg.TTL); err != nil {
		// ids come from crypto/rand; a collision means the generator is broken
		e.log.DPanic("challenge id collision", zap.String("id", id), zap.Error(err))
		return nil, nil, fmt.Errorf("register challenge: %w", err)
	}
	e.log.Debug("challenge issued",
		zap.String("id", id),
		zap.String("kind", string(kind)),
		zap.Duration("ttl", cfg.TTL))

	return &Challenge{
		ID:        id,
		Kind:      kind,
		ExpiresIn: int(cfg.TTL / time.Second),
		Payload:   payload,
	}, sol, nil
}

// Verify consumes the challenge and compares ans with its solution. The
// challenge is gone afterwards whatever the result, so a second call for the
// same id reports ErrAlreadyConsumed (or ErrUnknown once swept).
func (e *Engine) Verify(ctx context.Context, id string, ans Answer) error {
	_, err := e.verify(ctx, id, ans)
	return err
}

func (e *Engine) verify(ctx context.Context, id string, ans Answer) (Kind, error) {
	sol, err := e.table.Take(id)
	var kind Kind
	if err == nil {
		kind = sol.Kind()
		err = sol.check(ans)
	}

	o := Outcome{ChallengeID: id, Kind: kind, Result: OutcomeOf(err), At: time.Now().UTC()}
	e.log.Debug("challenge verified",
		zap.String("id", id),
		zap.String("kind", string(kind)),
		zap.String("result", o.Result))
	if e.recorder != nil {
		if rerr := e.recorder.Record(ctx, o); rerr != nil {
			e.log.Warn("record verification", zap.String("id", id), zap.Error(rerr))
		}
	}
	return kind, err
}

// Complete verifies like Verify and, when the answer is right, issues a pass
// token. The token can be redeemed once within the engine TTL, typically by
// the form the captcha protects.
func (e *Engine) Complete(ctx context.Context, id string, ans Answer) (string, error) {
	kind, err := e.verify(ctx, id, ans)
	if err != nil {
		return "", err
	}
	token := e.newID()
	if err := e.passes.Put(token, Pass{ChallengeID: id, Kind: kind}, e.cfg.TTL); err != nil {
		e.log.DPanic("pass token collision", zap.Error(err))
		return "", fmt.Errorf("issue pass token: %w", err)
	}
	return token, nil
}

// Redeem consumes a pass token. Unknown, expired and already redeemed tokens
// report the store errors.
func (e *Engine) Redeem(token string) (Pass, error) {
	p, err := e.passes.Take(token)
	e.log.Debug("pass token redeemed",
		zap.String("challenge_id", p.ChallengeID),
		zap.String("result", OutcomeOf(err)))
	return p, err
}
