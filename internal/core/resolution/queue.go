package resolution

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nutrient-resolver/internal/core/lookup"
	"nutrient-resolver/internal/core/match"
	"nutrient-resolver/internal/core/metrics"
	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/pkg/common"
)

// Lookuper 外部營養素查詢
type Lookuper interface {
	Lookup(ctx context.Context, name string, onWait func(retry.Wait)) (*lookup.Result, error)
}

// QueueStatus 佇列狀態
type QueueStatus struct {
	Queued   int       `json:"queued"`
	Fetched  int       `json:"fetched"`
	Settled  time.Time `json:"lastSettled,omitempty"`
	Cooldown string    `json:"cooldown"`
}

// Queue 單一工作階段的解析佇列。
// 自動查詢由唯一的消費 goroutine 依 FIFO 順序執行：上一筆查詢結束並經過冷卻時間後才會發出下一筆。
// 每次取出品項時都重新讀取工作清單中的最新狀態。
type Queue struct {
	session  *Session
	lookup   Lookuper
	matcher  *match.Matcher
	clock    retry.Clock
	cooldown time.Duration
	limit    int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	signal chan struct{}

	mu          sync.Mutex
	stopped     bool
	pending     []string
	queued      map[string]bool
	lastSettled time.Time
	fetched     int
}

func newQueue(s *Session, lk Lookuper, m *match.Matcher, clock retry.Clock, cooldown time.Duration, limit int) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		session:  s,
		lookup:   lk,
		matcher:  m,
		clock:    clock,
		cooldown: cooldown,
		limit:    limit,
		ctx:      ctx,
		cancel:   cancel,
		signal:   make(chan struct{}, 1),
		queued:   make(map[string]bool),
	}
}

// Start 啟動消費 goroutine
func (q *Queue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.run()
	}()
}

// Stop 取消進行中的查詢並等待所有 goroutine 結束
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}

// Enqueue 依序加入品項，已在佇列中的品項不重複加入
func (q *Queue) Enqueue(ids ...string) {
	q.mu.Lock()
	for _, id := range ids {
		if q.queued[id] {
			continue
		}
		q.queued[id] = true
		q.pending = append(q.pending, id)
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Status 佇列狀態
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStatus{
		Queued:   len(q.pending),
		Fetched:  q.fetched,
		Settled:  q.lastSettled,
		Cooldown: q.cooldown.String(),
	}
}

func (q *Queue) next() (string, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			id := q.pending[0]
			q.pending = q.pending[1:]
			delete(q.queued, id)
			q.mu.Unlock()
			return id, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-q.ctx.Done():
			return "", false
		}
	}
}

func (q *Queue) run() {
	for {
		id, ok := q.next()
		if !ok {
			return
		}
		if !q.awaitable(id) {
			continue
		}
		if err := q.waitCooldown(); err != nil {
			return
		}
		// 冷卻期間可能已被手動查詢
		if !q.awaitable(id) {
			continue
		}
		if _, err := q.session.Update(id, markFetching); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return
			}
			continue
		}
		q.fetch(id)
	}
}

func (q *Queue) awaitable(id string) bool {
	item, err := q.session.Item(id)
	return err == nil && item.State.Retriable()
}

// waitCooldown 距離上一次查詢結束未滿冷卻時間時等待剩餘時間
func (q *Queue) waitCooldown() error {
	for {
		q.mu.Lock()
		last := q.lastSettled
		q.mu.Unlock()
		if last.IsZero() {
			return nil
		}
		remaining := q.cooldown - q.clock.Now().Sub(last)
		if remaining <= 0 {
			return nil
		}
		common.LogDebug("等待查詢冷卻",
			zap.String("session_id", q.session.ID),
			zap.Duration("delay", remaining),
		)
		if err := q.clock.Sleep(q.ctx, remaining); err != nil {
			return err
		}
	}
}

// Resolve 手動查詢指定品項（不受佇列順序限制）。
// 狀態立即轉為 FETCHING，查詢在背景執行；結束後其餘待查品項重新排入佇列。
func (q *Queue) Resolve(id string) (nutrient.FoodItem, error) {
	item, err := q.session.Update(id, markFetching)
	if err != nil {
		return item, err
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return item, ErrSessionClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()
	go func() {
		defer q.wg.Done()
		q.fetch(id)
		q.Enqueue(q.retriableExcept(id)...)
	}()
	return item, nil
}

func (q *Queue) retriableExcept(skip string) []string {
	var ids []string
	for _, it := range q.session.Items() {
		if it.ID != skip && (it.State == nutrient.StateNeedsManualFetch || it.State == nutrient.StateFailed) {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

func markFetching(it nutrient.FoodItem) (nutrient.FoodItem, error) {
	if !it.State.Retriable() {
		if it.State == nutrient.StateFetching {
			return it, ErrItemBusy
		}
		return it, ErrNotRetriable
	}
	it.State = nutrient.StateFetching
	it.FailureReason = ""
	it.StatusMessage = ""
	return it, nil
}

// fetch 同時查詢外部來源與主資料庫，結果寫回最新的品項
func (q *Queue) fetch(id string) {
	item, err := q.session.Item(id)
	if err != nil {
		return
	}
	name := item.Name
	log := common.Logger.With(zap.String("session_id", q.session.ID), zap.String("item_id", id), zap.String("name", name))
	log.Info("開始外部查詢", zap.String("state", string(nutrient.StateFetching)))

	var (
		res        *lookup.Result
		lookupErr  error
		candidates []nutrient.CatalogCandidate
		g          errgroup.Group
	)
	g.Go(func() error {
		res, lookupErr = q.lookup.Lookup(q.ctx, name, func(w retry.Wait) {
			_, _ = q.session.Update(id, func(it nutrient.FoodItem) (nutrient.FoodItem, error) {
				it.StatusMessage = w.Message
				return it, nil
			})
		})
		return nil
	})
	g.Go(func() error {
		candidates = q.matcher.Search(name, q.session.Custom(), q.limit)
		return nil
	})
	_ = g.Wait()

	q.mu.Lock()
	q.lastSettled = q.clock.Now()
	q.fetched++
	q.mu.Unlock()

	updated, err := q.session.Update(id, func(it nutrient.FoodItem) (nutrient.FoodItem, error) {
		return settle(it, res, lookupErr, candidates), nil
	})
	if err != nil {
		log.Debug("查詢結果已捨棄", zap.Error(err))
		return
	}

	if updated.State == nutrient.StateResolved {
		log.Info("外部查詢完成", zap.String("state", string(updated.State)))
	} else {
		log.Warn("外部查詢失敗", zap.String("state", string(updated.State)), zap.String("reason", updated.FailureReason))
	}
}

// settle 依查詢結果更新品項。失敗時保留已取得的候選供手動選擇。
func settle(it nutrient.FoodItem, res *lookup.Result, lookupErr error, candidates []nutrient.CatalogCandidate) nutrient.FoodItem {
	it.CatalogCandidates = candidates
	it.StatusMessage = ""
	if res != nil {
		it.ExternalCandidates = res.Candidates
	}

	if lookupErr != nil {
		it.State = nutrient.StateFailed
		it.FailureReason = lookupErr.Error()
		return it
	}

	it = nutrient.ApplyRecord(it, res.BestMatch.Record)
	it.Quality = nutrient.DeriveQuality(it.Name, it.Category, it.ItemType, it.Quality)
	if res.BestMatch.Confidence > 0 {
		it.Confidence = res.BestMatch.Confidence
	}
	it.State = nutrient.StateResolved
	it.IsUnknown = false
	it.FailureReason = ""
	metrics.CatalogMatchesTotal.WithLabelValues("external").Inc()
	return it
}
