package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"musicvault/internal/application/usecase"
	"musicvault/internal/domain/bitz"
)

type fakeSumsReader struct {
	FetchSumsFunc func(ctx context.Context, artistID string, bountyIDs []string) ([]bitz.TipSum, error)
	calls         atomic.Int32
}

func (f *fakeSumsReader) FetchSums(ctx context.Context, artistID string, bountyIDs []string) ([]bitz.TipSum, error) {
	f.calls.Add(1)
	return f.FetchSumsFunc(ctx, artistID, bountyIDs)
}

func sumsOf(n int64) func(context.Context, string, []string) ([]bitz.TipSum, error) {
	return func(_ context.Context, _ string, ids []string) ([]bitz.TipSum, error) {
		out := make([]bitz.TipSum, 0, len(ids))
		for _, id := range ids {
			out = append(out, bitz.TipSum{BountyID: id, BitsSum: n, Likes: 1})
		}
		return out, nil
	}
}

func TestBitzUsecase_PowerUpsAndLikes(t *testing.T) {
	t.Run("EnsureCache", func(t *testing.T) {
		reader := &fakeSumsReader{FetchSumsFunc: sumsOf(42)}
		uc := usecase.NewBitzUsecase(usecase.NewPowerUpCache(16, 50*time.Millisecond), reader, nil, nil, "")

		got, err := uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1", "b2", "b1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "b1", got[0].BountyID)
		require.Equal(t, int64(42), got[1].BitsSum)
		require.Equal(t, int32(1), reader.calls.Load())

		_, err = uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b2", "b1"})
		require.NoError(t, err)
		require.Equal(t, int32(1), reader.calls.Load())

		time.Sleep(60 * time.Millisecond)
		_, err = uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1"})
		require.NoError(t, err)
		require.Equal(t, int32(2), reader.calls.Load())
	})

	t.Run("EnsureOnlyMissesFetched", func(t *testing.T) {
		var asked [][]string
		reader := &fakeSumsReader{FetchSumsFunc: func(ctx context.Context, a string, ids []string) ([]bitz.TipSum, error) {
			asked = append(asked, ids)
			return sumsOf(1)(ctx, a, ids)
		}}
		uc := usecase.NewBitzUsecase(usecase.NewPowerUpCache(16, time.Minute), reader, nil, nil, "")

		_, err := uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1"})
		require.NoError(t, err)
		_, err = uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1", "b3", "b2"})
		require.NoError(t, err)
		require.Equal(t, [][]string{{"b1"}, {"b2", "b3"}}, asked)
	})

	t.Run("EnsureConcurrentMissesShareOneFetch", func(t *testing.T) {
		release := make(chan struct{})
		reader := &fakeSumsReader{FetchSumsFunc: func(ctx context.Context, a string, ids []string) ([]bitz.TipSum, error) {
			<-release
			return sumsOf(7)(ctx, a, ids)
		}}
		uc := usecase.NewBitzUsecase(usecase.NewPowerUpCache(16, time.Minute), reader, nil, nil, "")

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := uc.PowerUpsAndLikes(context.Background(), "ar1", []string{"b1", "b2"})
				if err == nil && len(got) == 2 {
					return
				}
				t.Errorf("unexpected result: %v %v", got, err)
			}()
		}
		require.Eventually(t, func() bool { return reader.calls.Load() >= 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()
		require.Equal(t, int32(1), reader.calls.Load())
	})

	t.Run("EnsureMissingBountiesAreZero", func(t *testing.T) {
		reader := &fakeSumsReader{FetchSumsFunc: func(context.Context, string, []string) ([]bitz.TipSum, error) {
			return nil, nil
		}}
		uc := usecase.NewBitzUsecase(usecase.NewPowerUpCache(16, time.Minute), reader, nil, nil, "")

		got, err := uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b9"})
		require.NoError(t, err)
		require.Equal(t, int64(0), got[0].BitsSum)
	})

	t.Run("EnsureErrorsAreNotCached", func(t *testing.T) {
		fail := true
		reader := &fakeSumsReader{FetchSumsFunc: func(ctx context.Context, a string, ids []string) ([]bitz.TipSum, error) {
			if fail {
				return nil, errors.New("down")
			}
			return sumsOf(3)(ctx, a, ids)
		}}
		uc := usecase.NewBitzUsecase(usecase.NewPowerUpCache(16, time.Minute), reader, nil, nil, "")

		_, err := uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1"})
		require.Error(t, err)

		fail = false
		got, err := uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1"})
		require.NoError(t, err)
		require.Equal(t, int64(3), got[0].BitsSum)
	})
}

func TestBitzUsecase_Tip(t *testing.T) {
	reader := &fakeSumsReader{FetchSumsFunc: sumsOf(5)}
	ledger := newFakeXPLedger(map[string]int64{testPayer: 100})
	creds := usecase.NewPreAccessCache(time.Minute)
	creds.Put(testPayer, usecase.PreAccess{Nonce: "n", Signature: "s"})
	cache := usecase.NewPowerUpCache(16, time.Minute)
	uc := usecase.NewBitzUsecase(cache, reader, ledger, creds, "campaign-1")

	_, err := uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1"})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	receipt, err := uc.Tip(t.Context(), usecase.TipInput{Payer: testPayer, Recipient: testCreator, BountyID: "b1", Amount: 10})
	require.NoError(t, err)
	require.NotEmpty(t, receipt)
	require.Equal(t, "b1", ledger.lastGive.BountyID)
	require.Equal(t, 0, cache.Len())

	_, err = uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1"})
	require.NoError(t, err)
	require.Equal(t, int32(2), reader.calls.Load())

	_, err = uc.Tip(t.Context(), usecase.TipInput{Payer: testPayer, BountyID: "b1", Amount: 0})
	require.ErrorIs(t, err, bitz.ErrInvalidAmount)

	_, err = uc.Tip(t.Context(), usecase.TipInput{Payer: "unknown", BountyID: "b1", Amount: 1})
	require.ErrorIs(t, err, usecase.ErrPreAccessMissing)
}

func TestBitzUsecase_TipDuringFetch(t *testing.T) {
	var backendSum atomic.Int64
	backendSum.Store(5)
	entered := make(chan struct{})
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)

	reader := &fakeSumsReader{FetchSumsFunc: func(_ context.Context, _ string, ids []string) ([]bitz.TipSum, error) {
		sum := backendSum.Load()
		if first.CompareAndSwap(true, false) {
			close(entered)
			<-release
		}
		out := make([]bitz.TipSum, 0, len(ids))
		for _, id := range ids {
			out = append(out, bitz.TipSum{BountyID: id, BitsSum: sum})
		}
		return out, nil
	}}
	ledger := newFakeXPLedger(map[string]int64{testPayer: 100})
	creds := usecase.NewPreAccessCache(time.Minute)
	creds.Put(testPayer, usecase.PreAccess{Nonce: "n", Signature: "s"})
	uc := usecase.NewBitzUsecase(usecase.NewPowerUpCache(16, time.Minute), reader, ledger, creds, "campaign-1")

	done := make(chan []bitz.TipSum, 1)
	go func() {
		got, err := uc.PowerUpsAndLikes(context.Background(), "ar1", []string{"b1"})
		if err != nil {
			t.Errorf("fetch: %v", err)
		}
		done <- got
	}()
	<-entered

	// 取得中に tip が入り、backend 側の合計が増える
	backendSum.Store(15)
	_, err := uc.Tip(t.Context(), usecase.TipInput{Payer: testPayer, Recipient: testCreator, BountyID: "b1", Amount: 10})
	require.NoError(t, err)

	close(release)
	stale := <-done
	require.Equal(t, int64(5), stale[0].BitsSum)

	got, err := uc.PowerUpsAndLikes(t.Context(), "ar1", []string{"b1"})
	require.NoError(t, err)
	require.Equal(t, int64(15), got[0].BitsSum)
	require.Equal(t, int32(2), reader.calls.Load())
}
