package resolution

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrient-resolver/internal/core/catalog"
	"nutrient-resolver/internal/core/lookup"
	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/recognition"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/pkg/common"
)

func visual(name string, amount float64) recognition.Item {
	return recognition.Item{
		Name:     name,
		Amount:   amount,
		Source:   nutrient.SourceVisualEstimation,
		ItemType: nutrient.ItemTypeFood,
	}
}

func TestRiceResolvesToFreshlyCooked(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("ご飯", 180)},
	})
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)

	rice := snap.Items[0]
	assert.Equal(t, "白米（炊飯直後）", rice.Name)
	assert.Equal(t, "穀類", rice.Category)
	assert.Equal(t, math.Round(156*1.8), rice.Nutrients.Calories)
	assert.Equal(t, nutrient.UnitGram, rice.Unit)
	assert.False(t, rice.IsUnknown)
	assert.Equal(t, nutrient.StateNone, rice.State)
	assert.Equal(t, 0, snap.Pending)
	assert.Empty(t, lk.Calls())
}

func TestEggResolvesToMSize(t *testing.T) {
	clock := newManualClock()
	svc := newTestService(t, newFakeLookup(clock), nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("卵", 116)},
	})
	require.NoError(t, err)

	egg := snap.Items[0]
	assert.Equal(t, "鶏卵 M（58g）", egg.Name)
	assert.Equal(t, nutrient.UnitPiece, egg.Unit)
	assert.Equal(t, 164.0, egg.Nutrients.Calories)
}

func TestUnknownItemsAdvanceAfterCooldown(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	lk.results["謎の料理A"] = best(200, 10, 5, 20)
	lk.results["謎の料理B"] = best(300, 12, 8, 30)
	releaseA := lk.gate("謎の料理A")
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("謎の料理A", 100), visual("謎の料理B", 100)},
	})
	require.NoError(t, err)
	idA, idB := snap.Items[0].ID, snap.Items[1].ID
	assert.Equal(t, 2, snap.Pending)

	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idA).State == nutrient.StateFetching
	}, waitFor, tick)
	assert.Equal(t, nutrient.StateNeedsManualFetch, itemState(t, svc, snap.ID, idB).State)

	settledAt := clock.Now()
	close(releaseA)
	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idA).State == nutrient.StateResolved
	}, waitFor, tick)

	// B 等待冷卻
	require.Eventually(t, func() bool { return clock.Sleepers() == 1 }, waitFor, tick)
	assert.Equal(t, nutrient.StateNeedsManualFetch, itemState(t, svc, snap.ID, idB).State)
	assert.Len(t, lk.Calls(), 1)

	clock.Advance(1999 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, nutrient.StateNeedsManualFetch, itemState(t, svc, snap.ID, idB).State)
	assert.Len(t, lk.Calls(), 1)

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idB).State == nutrient.StateResolved
	}, waitFor, tick)

	calls := lk.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "謎の料理A", calls[0].name)
	assert.Equal(t, "謎の料理B", calls[1].name)
	assert.Equal(t, 2*time.Second, calls[1].at.Sub(settledAt))

	b := itemState(t, svc, snap.ID, idB)
	assert.Equal(t, 300.0, b.Nutrients.Calories)
	assert.False(t, b.IsUnknown)
	assert.Equal(t, 0.7, b.Confidence)
	require.NotNil(t, b.Base)
}

func TestPackageItemKeepsLabelPFC(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	fill := best(400, 30, 5, 40)
	fill.BestMatch.Record.Calcium = nutrient.Float(120)
	lk.results["プロテインバー"] = fill
	svc := newTestService(t, lk, nil, clock)

	label := rec(250, 20, 10, 22)
	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		HasPackageInfo: true,
		PackageWeight:  50,
		Foods: []recognition.Item{{
			Name:             "プロテインバー",
			Amount:           50,
			Source:           nutrient.SourcePackage,
			ItemType:         nutrient.ItemTypeFood,
			NutritionPer100g: &label,
		}},
	})
	require.NoError(t, err)

	bar := snap.Items[0]
	assert.Equal(t, 125.0, bar.Nutrients.Calories)
	assert.True(t, bar.UsePackagePFC)
	assert.True(t, bar.IsUnknown)

	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, bar.ID).State == nutrient.StateResolved
	}, waitFor, tick)

	bar = itemState(t, svc, snap.ID, bar.ID)
	assert.Equal(t, 125.0, bar.Nutrients.Calories)
	assert.Equal(t, 10.0, bar.Nutrients.Protein)
	assert.Equal(t, 5.0, bar.Nutrients.Fat)
	assert.Equal(t, 11.0, bar.Nutrients.Carbs)
	require.NotNil(t, bar.Nutrients.Calcium)
	assert.Equal(t, 60.0, *bar.Nutrients.Calcium)
	assert.Equal(t, "プロテインバー", bar.Name)

	// 份量變更後 PFC 仍以標示值換算
	bar, err = svc.SetAmount(snap.ID, bar.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 250.0, bar.Nutrients.Calories)
	assert.Equal(t, 120.0, *bar.Nutrients.Calcium)
}

func TestFailedLookupKeepsCatalogCandidates(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	lk.errs["きうい"] = errors.New("lookup failed after 6 attempts")
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("きうい", 50)},
	})
	require.NoError(t, err)
	id := snap.Items[0].ID

	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, id).State == nutrient.StateFailed
	}, waitFor, tick)

	item := itemState(t, svc, snap.ID, id)
	assert.True(t, item.IsUnknown)
	assert.Contains(t, item.FailureReason, "6 attempts")
	require.Len(t, item.CatalogCandidates, 2)
	assert.Equal(t, "キウイ（乾燥）", item.CatalogCandidates[0].ItemName)
	assert.Equal(t, "キウイフルーツ（生）", item.CatalogCandidates[1].ItemName)

	item, err = svc.Select(context.Background(), snap.ID, id, SourceCatalog, 1)
	require.NoError(t, err)
	assert.Equal(t, "キウイフルーツ（生）", item.Name)
	assert.Equal(t, "果物類", item.Category)
	assert.Equal(t, nutrient.StateResolved, item.State)
	assert.False(t, item.IsUnknown)
	assert.Empty(t, item.FailureReason)
	assert.Equal(t, math.Round(51*0.5), item.Nutrients.Calories)

	_, err = svc.Select(context.Background(), snap.ID, id, SourceCatalog, 5)
	assert.ErrorIs(t, err, ErrCandidateNotFound)
	_, err = svc.Select(context.Background(), snap.ID, id, "web", 0)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSelectExternalCandidateRequeries(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	first := best(100, 1, 1, 1)
	first.Candidates = []nutrient.ExternalCandidate{
		{Name: "鶏の照り焼き", MatchScore: 90},
		{Name: "照り焼きチキン", MatchScore: 70},
	}
	lk.results["てりやき"] = first
	lk.results["照り焼きチキン"] = best(220, 18, 12, 8)
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("てりやき", 200)},
	})
	require.NoError(t, err)
	id := snap.Items[0].ID
	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, id).State == nutrient.StateResolved
	}, waitFor, tick)

	item, err := svc.Select(context.Background(), snap.ID, id, SourceExternal, 1)
	require.NoError(t, err)
	assert.Equal(t, "照り焼きチキン", item.Name)
	assert.Equal(t, 440.0, item.Nutrients.Calories)

	calls := lk.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "照り焼きチキン", calls[1].name)
}

func TestManualResolveOutOfOrder(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	lk.results["A"] = best(1, 1, 1, 1)
	lk.results["B"] = best(2, 1, 1, 1)
	lk.results["C"] = best(3, 1, 1, 1)
	releaseA := lk.gate("A")
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("A", 100), visual("B", 100), visual("C", 100)},
	})
	require.NoError(t, err)
	idA, idB, idC := snap.Items[0].ID, snap.Items[1].ID, snap.Items[2].ID

	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idA).State == nutrient.StateFetching
	}, waitFor, tick)

	_, err = svc.Resolve(snap.ID, idA)
	assert.ErrorIs(t, err, ErrItemBusy)

	item, err := svc.Resolve(snap.ID, idC)
	require.NoError(t, err)
	assert.Equal(t, nutrient.StateFetching, item.State)
	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idC).State == nutrient.StateResolved
	}, waitFor, tick)
	assert.Equal(t, nutrient.StateNeedsManualFetch, itemState(t, svc, snap.ID, idB).State)

	_, err = svc.Resolve(snap.ID, idC)
	assert.ErrorIs(t, err, ErrNotRetriable)

	close(releaseA)
	require.Eventually(t, func() bool { return clock.Sleepers() == 1 }, waitFor, tick)
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idB).State == nutrient.StateResolved
	}, waitFor, tick)

	// C はもう解析済みなので再取得されない
	names := map[string]int{}
	for _, c := range lk.Calls() {
		names[c.name]++
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, names)
}

func TestRetryWaitMessageSurfaces(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	lk.results["X"] = best(10, 1, 1, 1)
	lk.waits["X"] = retry.Wait{Message: retry.WaitMessage(retry.ClassRateLimit, 6*time.Second, 2, 5)}
	release := lk.gate("X")
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("X", 100)},
	})
	require.NoError(t, err)
	id := snap.Items[0].ID

	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, id).StatusMessage != ""
	}, waitFor, tick)
	assert.Contains(t, itemState(t, svc, snap.ID, id).StatusMessage, "6秒後")

	close(release)
	require.Eventually(t, func() bool {
		it := itemState(t, svc, snap.ID, id)
		return it.State == nutrient.StateResolved && it.StatusMessage == ""
	}, waitFor, tick)
}

func TestCloseSessionDropsInFlightResult(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	lk.results["A"] = best(1, 1, 1, 1)
	lk.gate("A")
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("A", 100)},
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(lk.Calls()) == 1 }, waitFor, tick)

	require.NoError(t, svc.CloseSession(snap.ID))
	_, err = svc.Session(snap.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.CloseSession(snap.ID), ErrSessionNotFound)
}

func TestSetAmount(t *testing.T) {
	clock := newManualClock()
	svc := newTestService(t, newFakeLookup(clock), nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("ご飯", 180)},
	})
	require.NoError(t, err)
	id := snap.Items[0].ID

	item, err := svc.SetAmount(snap.ID, id, 250)
	require.NoError(t, err)
	assert.Equal(t, math.Round(156*2.5), item.Nutrients.Calories)
	assert.Equal(t, 100.0, item.Base.ServingSize)

	_, err = svc.SetAmount(snap.ID, id, 0)
	assert.ErrorIs(t, err, nutrient.ErrInvalidAmount)
	_, err = svc.SetAmount(snap.ID, "missing", 10)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = svc.SetAmount("missing", id, 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	snap, err = svc.Session(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, math.Round(156*2.5), snap.Totals.Calories)
}

func TestCommitSavesResolvedItems(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	lk.results["自家製グラノーラ"] = best(450, 10, 15, 65)
	lk.results["手作りスムージー"] = best(60, 1, 0.5, 13)
	store := &memCustomStore{items: []catalog.CustomItem{{
		ID: "c1", UserID: "u1", Name: "手作りスムージー", Category: catalog.CustomCategory,
		Record: rec(70, 1, 1, 14), Hidden: true,
	}}}
	svc := newTestService(t, lk, store, clock)

	snap, err := svc.CreateSession(context.Background(), "u1", &recognition.Result{
		Foods: []recognition.Item{visual("自家製グラノーラ", 40), visual("ご飯", 150), visual("手作りスムージー", 200)},
	})
	require.NoError(t, err)
	idGranola, idSmoothie := snap.Items[0].ID, snap.Items[2].ID

	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idGranola).State == nutrient.StateResolved
	}, waitFor, tick)
	require.Eventually(t, func() bool { return clock.Sleepers() == 1 }, waitFor, tick)
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, idSmoothie).State == nutrient.StateResolved
	}, waitFor, tick)

	res, err := svc.Commit(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"自家製グラノーラ"}, res.Saved)
	assert.Equal(t, []string{"手作りスムージー"}, res.Skipped)

	saved, err := store.ListCustomItems(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	g := saved[1]
	assert.Equal(t, catalog.CustomCategory, g.Category)
	assert.Equal(t, 450.0, g.Record.Calories)
	assert.Equal(t, 100.0, g.Record.ServingSize)

	_, err = svc.Session(snap.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSearchCatalogIncludesCustomItems(t *testing.T) {
	clock := newManualClock()
	store := &memCustomStore{items: []catalog.CustomItem{
		{ID: "c1", UserID: "u1", Name: "キウイスムージー", Category: catalog.CustomCategory, Record: rec(80, 1, 1, 18)},
		{ID: "c2", UserID: "u1", Name: "キウイジャム", Category: catalog.CustomCategory, Record: rec(200, 0, 0, 50), Hidden: true},
	}}
	svc := newTestService(t, newFakeLookup(clock), store, clock)

	out, err := svc.SearchCatalog(context.Background(), "u1", "キウイ")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "キウイ（乾燥）", out[0].ItemName)
	var custom []string
	for _, c := range out {
		if c.IsCustom {
			custom = append(custom, c.ItemName)
		}
	}
	assert.Equal(t, []string{"キウイスムージー"}, custom)

	out, err = svc.SearchCatalog(context.Background(), "u1", "  ")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHiddenCustomItemsLeaveSearchAndMatching(t *testing.T) {
	clock := newManualClock()
	store := &memCustomStore{items: []catalog.CustomItem{
		{ID: "c1", UserID: "u1", Name: "自家製グラノーラ", Category: catalog.CustomCategory, Record: rec(450, 10, 15, 65)},
	}}
	svc := newTestService(t, newFakeLookup(clock), store, clock)
	ctx := context.Background()

	snap, err := svc.CreateSession(ctx, "u1", &recognition.Result{Foods: []recognition.Item{visual("自家製グラノーラ", 40)}})
	require.NoError(t, err)
	assert.True(t, snap.Items[0].IsCustom)
	assert.Equal(t, 180.0, snap.Items[0].Nutrients.Calories)

	require.NoError(t, svc.SetCustomItemHidden(ctx, "u1", "c1", true))

	all, err := svc.CustomItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Hidden)

	out, err := svc.SearchCatalog(ctx, "u1", "グラノーラ")
	require.NoError(t, err)
	assert.Empty(t, out)

	snap, err = svc.CreateSession(ctx, "u1", &recognition.Result{Foods: []recognition.Item{visual("自家製グラノーラ", 40)}})
	require.NoError(t, err)
	assert.True(t, snap.Items[0].IsUnknown)
	assert.False(t, snap.Items[0].IsCustom)

	require.NoError(t, svc.SetCustomItemHidden(ctx, "u1", "c1", false))
	out, err = svc.SearchCatalog(ctx, "u1", "グラノーラ")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsCustom)

	assert.ErrorIs(t, svc.SetCustomItemHidden(ctx, "u2", "c1", true), common.ErrNotFound)
	assert.True(t, common.IsValidationError(svc.SetCustomItemHidden(ctx, "", "c1", true)))

	bare := newTestService(t, newFakeLookup(clock), nil, clock)
	_, err = bare.CustomItems(ctx, "u1")
	assert.ErrorIs(t, err, ErrCustomItemsDisabled)
}

func TestLookupMissingBestMatchFails(t *testing.T) {
	clock := newManualClock()
	lk := newFakeLookup(clock)
	lk.results["Z"] = &lookup.Result{Candidates: []nutrient.ExternalCandidate{{Name: "Zeta"}}}
	lk.errs["Z"] = lookup.ErrNoBestMatch
	svc := newTestService(t, lk, nil, clock)

	snap, err := svc.CreateSession(context.Background(), "", &recognition.Result{
		Foods: []recognition.Item{visual("Z", 100)},
	})
	require.NoError(t, err)
	id := snap.Items[0].ID

	require.Eventually(t, func() bool {
		return itemState(t, svc, snap.ID, id).State == nutrient.StateFailed
	}, waitFor, tick)
	item := itemState(t, svc, snap.ID, id)
	require.Len(t, item.ExternalCandidates, 1)
	assert.Nil(t, item.Base)
}
