package domain

import "math/rand"

// Playlist - упорядоченная очередь треков с курсором на текущем.
// Не потокобезопасен сам по себе: доступ сериализуется мьютексом комнаты.
type Playlist struct {
	items    []MediaItem
	cursor   int
	capacity int
}

func NewPlaylist(capacity int) *Playlist {
	return &Playlist{capacity: capacity}
}

func (p *Playlist) Len() int {
	return len(p.items)
}

func (p *Playlist) Cursor() int {
	return p.cursor
}

func (p *Playlist) Remaining() int {
	return p.capacity - len(p.items)
}

// Current возвращает текущий трек, если плейлист не пуст
func (p *Playlist) Current() (MediaItem, bool) {
	if len(p.items) == 0 {
		return MediaItem{}, false
	}

	return p.items[p.cursor], true
}

// Append добавляет треки в хвост, обрезая партию до свободной емкости.
// Возвращает сколько добавлено и сколько отброшено.
func (p *Playlist) Append(items []MediaItem) (added, dropped int) {
	free := p.capacity - len(p.items)
	if free <= 0 {
		return 0, len(items)
	}

	if len(items) > free {
		dropped = len(items) - free
		items = items[:free]
	}

	p.items = append(p.items, items...)

	return len(items), dropped
}

// Advance сдвигает курсор на следующий трек. false означает, что
// очередь исчерпана и решение остается за вызывающим (Auto-DJ или стоп).
func (p *Playlist) Advance() bool {
	if p.cursor+1 >= len(p.items) {
		return false
	}

	p.cursor++

	return true
}

// RemoveAt удаляет трек строго после курсора: текущий трек и история
// защищены от конкурентных удалений.
func (p *Playlist) RemoveAt(index int) (MediaItem, error) {
	if index <= p.cursor || index >= len(p.items) {
		return MediaItem{}, ErrInvalidIndex
	}

	removed := p.items[index]
	p.items = append(p.items[:index], p.items[index+1:]...)

	return removed, nil
}

// ShuffleFuture перемешивает только треки после курсора
func (p *Playlist) ShuffleFuture() {
	if p.cursor+1 >= len(p.items) {
		return
	}

	future := p.items[p.cursor+1:]

	rand.Shuffle(len(future), func(i, j int) {
		future[i], future[j] = future[j], future[i]
	})
}

// Items возвращает копию очереди для сериализации
func (p *Playlist) Items() []MediaItem {
	out := make([]MediaItem, len(p.items))
	copy(out, p.items)

	return out
}

// RecentTitles возвращает названия последних n треков
func (p *Playlist) RecentTitles(n int) []string {
	start := len(p.items) - n
	if start < 0 {
		start = 0
	}

	titles := make([]string, 0, len(p.items)-start)
	for _, item := range p.items[start:] {
		titles = append(titles, item.Title)
	}

	return titles
}

func (p *Playlist) ContainsID(id string) bool {
	for _, item := range p.items {
		if item.ID == id {
			return true
		}
	}

	return false
}
