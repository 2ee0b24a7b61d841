package domain

// MaxTitleLen ограничивает длину названия в символах
const MaxTitleLen = 200

// MediaItem - один элемент плейлиста. Неизменяемый после создания,
// идентичность задается ID (дубликаты в плейлисте допустимы).
type MediaItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail"`
	AddedBy      string `json:"added_by"`

	// Auto - трек добавлен Auto-DJ, а не участником
	Auto bool `json:"auto,omitempty"`
}

// ResolvedItem - результат работы медиа-резолвера, еще без привязки
// к участнику, который его добавил.
type ResolvedItem struct {
	ID        string
	Title     string
	Thumbnail string
}

func NewMediaItem(r ResolvedItem, addedBy string, auto bool) MediaItem {
	return MediaItem{
		ID:           r.ID,
		Title:        TruncateTitle(r.Title),
		ThumbnailURL: r.Thumbnail,
		AddedBy:      addedBy,
		Auto:         auto,
	}
}

func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= MaxTitleLen {
		return title
	}

	return string(runes[:MaxTitleLen])
}
