package audit

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captchaAuth/internal/challenge"
	"captchaAuth/internal/store"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndCounts(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	now := time.Now()

	for _, o := range []challenge.Outcome{
		{ChallengeID: "a", Kind: challenge.KindText, Result: challenge.OutcomeOK, At: now},
		{ChallengeID: "b", Kind: challenge.KindText, Result: challenge.OutcomeMismatch, At: now},
		{ChallengeID: "c", Kind: challenge.KindText, Result: challenge.OutcomeOK, At: now},
		{ChallengeID: "d", Kind: challenge.KindSlider, Result: challenge.OutcomeExpired, At: now},
		{ChallengeID: "e", Result: challenge.OutcomeUnknown, At: now},
	} {
		require.NoError(t, db.Record(ctx, o))
	}

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{
		"text":   {"ok": 2, "mismatch": 1},
		"slider": {"expired": 1},
		"":       {"unknown": 1},
	}, counts)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Record(ctx, challenge.Outcome{ChallengeID: "a", Kind: challenge.KindDrag, Result: "ok", At: time.Now()}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["drag"]["ok"])
}

func TestEngineRecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	e := challenge.New(challenge.DefaultConfig(), store.New[challenge.Solution](),
		challenge.WithRand(rand.New(rand.NewSource(1))),
		challenge.WithRecorder(db))

	c, err := e.Generate(ctx, challenge.KindSlider, challenge.Overrides{})
	require.NoError(t, err)
	assert.ErrorIs(t, e.Verify(ctx, c.ID, challenge.SliderAnswer{X: -1000}), challenge.ErrMismatch)
	assert.ErrorIs(t, e.Verify(ctx, c.ID, challenge.SliderAnswer{X: -1000}), challenge.ErrAlreadyConsumed)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"mismatch": 1}, counts["slider"])
	// 已消费的挑战查不到类型
	assert.Equal(t, map[string]int{"consumed": 1}, counts[""])
}
