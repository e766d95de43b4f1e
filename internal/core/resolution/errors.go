package resolution

import "errors"

var (
	// ErrSessionNotFound 工作階段不存在或已過期
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed 工作階段已關閉，之後的更新一律忽略
	ErrSessionClosed = errors.New("session closed")
	// ErrItemNotFound 工作清單中沒有這個品項
	ErrItemNotFound = errors.New("item not found")
	// ErrNotRetriable 品項不在可查詢的狀態（已解析、查詢中或不需查詢）
	ErrNotRetriable = errors.New("item is not awaiting resolution")
	// ErrItemBusy 品項正在查詢中
	ErrItemBusy = errors.New("item is being fetched")
	// ErrCandidateNotFound 候選索引超出範圍
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrUnknownSource 候選來源不是 external 或 catalog
	ErrUnknownSource = errors.New("unknown candidate source")
	// ErrLookupFailed 選擇外部候選時的重新查詢失敗
	ErrLookupFailed = errors.New("candidate lookup failed")
	// ErrCustomItemsDisabled 未設定自訂食品儲存
	ErrCustomItemsDisabled = errors.New("custom item store is not configured")
)
