// Package resolution 管理編輯中的餐點工作階段：辨識結果的比對、
// 未知品項的依序外部查詢、份量編輯、候選選擇與提交。
package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutrient-resolver/internal/core/catalog"
	"nutrient-resolver/internal/core/match"
	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/recognition"
	"nutrient-resolver/internal/core/retry"
	"nutrient-resolver/internal/core/textnorm"
	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/pkg/common"
)

// 候選來源
const (
	SourceExternal = "external"
	SourceCatalog  = "catalog"
)

// Options 解析設定
type Options struct {
	Cooldown        time.Duration
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	CandidateLimit  int
}

// OptionsFromConfig 由設定建立
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Cooldown:        cfg.Resolution.Cooldown,
		SessionTTL:      cfg.Resolution.SessionTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		CandidateLimit:  cfg.Resolution.CatalogCandidateLimit,
	}
}

// Service 工作階段服務
type Service struct {
	catalog  *catalog.Catalog
	matcher  *match.Matcher
	pipeline *Pipeline
	lookup   Lookuper
	custom   catalog.CustomItemStore
	clock    retry.Clock
	opts     Options
	registry *Registry
}

// NewService 建立服務；custom 為 nil 時不使用自訂食品
func NewService(c *catalog.Catalog, m *match.Matcher, lk Lookuper, custom catalog.CustomItemStore, clock retry.Clock, opts Options) *Service {
	if clock == nil {
		clock = retry.RealClock()
	}
	return &Service{
		catalog:  c,
		matcher:  m,
		pipeline: NewPipeline(m),
		lookup:   lk,
		custom:   custom,
		clock:    clock,
		opts:     opts,
		registry: NewRegistry(opts.SessionTTL, opts.CleanupInterval),
	}
}

// CreateSession 由辨識結果建立工作階段並開始自動查詢未知品項
func (s *Service) CreateSession(ctx context.Context, userID string, res *recognition.Result) (Snapshot, error) {
	custom, err := s.customItems(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	items, unknown := s.pipeline.Build(res, custom)
	sess := newSession(common.GenerateUUID(), userID, items, custom, s.clock.Now())
	sess.HasPackageInfo = res.HasPackageInfo
	sess.PackageWeight = res.PackageWeight
	sess.queue = newQueue(sess, s.lookup, s.matcher, s.clock, s.opts.Cooldown, s.opts.CandidateLimit)
	s.registry.Put(sess)

	sess.queue.Start()
	sess.queue.Enqueue(unknown...)

	common.LogInfo("工作階段已建立",
		zap.String("session_id", sess.ID),
		zap.Int("items", len(items)),
		zap.Int("unknown", len(unknown)),
	)
	return sess.Snapshot(), nil
}

// Session 讀取工作階段快照
func (s *Service) Session(id string) (Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// QueueStatus 佇列狀態
func (s *Service) QueueStatus(id string) (QueueStatus, error) {
	sess, err := s.get(id)
	if err != nil {
		return QueueStatus{}, err
	}
	return sess.queue.Status(), nil
}

// CloseSession 關閉工作階段，進行中的查詢結果會被丟棄
func (s *Service) CloseSession(id string) error {
	if !s.registry.Delete(id) {
		return ErrSessionNotFound
	}
	return nil
}

// SetAmount 修改份量並由基準值重新計算
func (s *Service) SetAmount(id, itemID string, amount float64) (nutrient.FoodItem, error) {
	sess, err := s.get(id)
	if err != nil {
		return nutrient.FoodItem{}, err
	}
	return sess.Update(itemID, func(it nutrient.FoodItem) (nutrient.FoodItem, error) {
		return nutrient.ApplyAmount(it, amount)
	})
}

// Resolve 手動查詢品項，不等待佇列順序
func (s *Service) Resolve(id, itemID string) (nutrient.FoodItem, error) {
	sess, err := s.get(id)
	if err != nil {
		return nutrient.FoodItem{}, err
	}
	return sess.queue.Resolve(itemID)
}

// Select 以候選取代品項的營養素。外部候選沒有營養素時以候選名稱重新查詢。
func (s *Service) Select(ctx context.Context, id, itemID, source string, index int) (nutrient.FoodItem, error) {
	sess, err := s.get(id)
	if err != nil {
		return nutrient.FoodItem{}, err
	}
	item, err := sess.Item(itemID)
	if err != nil {
		return item, err
	}
	if item.State == nutrient.StateFetching {
		return item, ErrItemBusy
	}

	var (
		name, category string
		isCustom       bool
		rec            nutrient.Record
	)
	switch source {
	case SourceExternal:
		if index < 0 || index >= len(item.ExternalCandidates) {
			return item, ErrCandidateNotFound
		}
		cand := item.ExternalCandidates[index]
		name = cand.Name
		if cand.Record != nil {
			rec = *cand.Record
		} else {
			res, err := s.lookup.Lookup(ctx, cand.Name, nil)
			if err != nil {
				return item, fmt.Errorf("%w: candidate %q: %w", ErrLookupFailed, cand.Name, err)
			}
			rec = res.BestMatch.Record
		}
	case SourceCatalog:
		if index < 0 || index >= len(item.CatalogCandidates) {
			return item, ErrCandidateNotFound
		}
		cand := item.CatalogCandidates[index]
		name, category, isCustom, rec = cand.ItemName, cand.Category, cand.IsCustom, cand.Record
	default:
		return item, ErrUnknownSource
	}

	return sess.Update(itemID, func(it nutrient.FoodItem) (nutrient.FoodItem, error) {
		if it.State == nutrient.StateFetching {
			return it, ErrItemBusy
		}
		// 包裝品項保留商品名稱，只補微量營養素
		if !it.UsePackagePFC {
			it.Name = name
			it.Category = category
			it.IsCustom = isCustom
		}
		it = nutrient.ApplyRecord(it, rec)
		it.Quality = nutrient.DeriveQuality(it.Name, it.Category, it.ItemType, nutrient.Quality{DIAAS: rec.DIAAS, GI: rec.GI})
		it.IsUnknown = false
		it.FailureReason = ""
		it.StatusMessage = ""
		if it.State != nutrient.StateNone {
			it.State = nutrient.StateResolved
		}
		return it, nil
	})
}

// CommitResult 提交結果
type CommitResult struct {
	Saved   []string `json:"saved"`
	Skipped []string `json:"skipped"`
}

// Commit 把經由外部查詢或手動選擇解析的品項存成自訂食品，已存在的名稱略過。
// 提交後工作階段關閉。
func (s *Service) Commit(ctx context.Context, id string) (CommitResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return CommitResult{}, err
	}
	result := CommitResult{Saved: []string{}, Skipped: []string{}}
	if s.custom == nil {
		_ = s.CloseSession(id)
		return result, nil
	}

	existing, err := s.custom.ListCustomItems(ctx, sess.UserID)
	if err != nil {
		return result, fmt.Errorf("list custom items: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, c := range existing {
		names[textnorm.Normalize(c.Name)] = true
	}

	for _, it := range sess.Items() {
		if it.State != nutrient.StateResolved || it.Base == nil || it.IsCustom {
			continue
		}
		name := textnorm.Normalize(it.Name)
		if _, inCatalog := s.catalog.Get(it.Category, it.Name); inCatalog || names[name] {
			result.Skipped = append(result.Skipped, it.Name)
			continue
		}

		rec := nutrient.Record{
			Values:      it.Base.Values.Clone(),
			ServingSize: it.Base.ServingSize,
			ServingUnit: it.Base.ServingUnit,
			DIAAS:       it.Quality.DIAAS,
			GI:          it.Quality.GI,
		}
		itemType := it.ItemType
		if itemType == "" {
			itemType = nutrient.ItemTypeFood
		}
		err := s.custom.SaveCustomItem(ctx, catalog.CustomItem{
			ID:        common.GenerateUUID(),
			UserID:    sess.UserID,
			Name:      name,
			Category:  catalog.CustomCategory,
			ItemType:  itemType,
			Record:    rec,
			CreatedAt: s.clock.Now(),
		})
		if err != nil {
			return result, fmt.Errorf("save custom item %q: %w", name, err)
		}
		names[name] = true
		result.Saved = append(result.Saved, name)
	}

	common.LogInfo("工作階段已提交",
		zap.String("session_id", id),
		zap.Int("saved", len(result.Saved)),
		zap.Int("skipped", len(result.Skipped)),
	)
	_ = s.CloseSession(id)
	return result, nil
}

// SearchCatalog 手動選擇用的資料庫搜尋（含使用者的自訂食品）
func (s *Service) SearchCatalog(ctx context.Context, userID, query string) ([]nutrient.CatalogCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return []nutrient.CatalogCandidate{}, nil
	}
	custom, err := s.customItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := s.matcher.Search(query, custom, s.opts.CandidateLimit)
	if out == nil {
		out = []nutrient.CatalogCandidate{}
	}
	return out, nil
}

// CustomItems 使用者的自訂食品，含已隱藏的項目，供管理用
func (s *Service) CustomItems(ctx context.Context, userID string) ([]catalog.CustomItem, error) {
	if err := s.requireCustomStore(userID); err != nil {
		return nil, err
	}
	items, err := s.custom.ListCustomItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom items: %w", err)
	}
	if items == nil {
		items = []catalog.CustomItem{}
	}
	return items, nil
}

// SetCustomItemHidden 隱藏或恢復自訂食品。隱藏的項目不再參與比對與搜尋，
// 已建立的工作階段沿用建立當時的清單。
func (s *Service) SetCustomItemHidden(ctx context.Context, userID, id string, hidden bool) error {
	if err := s.requireCustomStore(userID); err != nil {
		return err
	}
	if err := s.custom.SetHidden(ctx, userID, id, hidden); err != nil {
		return err
	}
	common.LogInfo("自訂食品顯示狀態已更新",
		zap.String("user_id", userID),
		zap.String("item_id", id),
		zap.Bool("hidden", hidden),
	)
	return nil
}

func (s *Service) requireCustomStore(userID string) error {
	if s.custom == nil {
		return ErrCustomItemsDisabled
	}
	if strings.TrimSpace(userID) == "" {
		return common.NewValidationError("user id is required")
	}
	return nil
}

// ActiveSessions 進行中的工作階段數
func (s *Service) ActiveSessions() int {
	return s.registry.Len()
}

// Shutdown 關閉所有工作階段
func (s *Service) Shutdown() {
	s.registry.CloseAll()
}

func (s *Service) get(id string) (*Session, error) {
	sess, ok := s.registry.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) customItems(ctx context.Context, userID string) ([]catalog.CustomItem, error) {
	if s.custom == nil || userID == "" {
		return nil, nil
	}
	items, err := s.custom.ListCustomItems(ctx, userID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		common.LogWarn("自訂食品讀取失敗，只使用主資料庫", zap.String("user_id", userID), zap.Error(err))
		return nil, nil
	}
	return catalog.Visible(items), nil
}
