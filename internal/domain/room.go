package domain

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Room - агрегат одной комнаты: плейлист, якорь, участники и настройки.
// Все мутации сериализуются внутренним мьютексом, разные комнаты
// обрабатываются полностью параллельно.
type Room struct {
	ID        string
	CreatedAt time.Time

	mu sync.Mutex

	// secretHash - bcrypt от пароля создателя; nil для открытой комнаты
	secretHash []byte

	playlist *Playlist
	anchor   ClockAnchor

	continuationEnabled bool

	// members хранит имена в порядке подключения
	members  []string
	maxUsers int

	// emptySince - момент, когда комната опустела; zero пока кто-то внутри
	emptySince time.Time

	// rev растет на каждой мутации плейлиста и защищает Auto-DJ
	// от применения устаревшего результата
	rev uint64
}

// RoomState - снимок состояния комнаты для построения пакета
type RoomState struct {
	Playlist            []MediaItem
	Cursor              int
	Anchor              ClockAnchor
	ContinuationEnabled bool
	Members             []string
}

func NewRoom(id, password string, maxUsers, maxPlaylist int, now time.Time) (*Room, error) {
	room := &Room{
		ID:                  id,
		CreatedAt:           now,
		playlist:            NewPlaylist(maxPlaylist),
		anchor:              NewAnchor(0, false, now),
		continuationEnabled: true,
		maxUsers:            maxUsers,
		emptySince:          now,
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		room.secretHash = hash
	}

	return room, nil
}

// CheckPassword сверяет пароль; открытая комната пускает всех
func (r *Room) CheckPassword(password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.secretHash) == 0 {
		return true
	}

	return bcrypt.CompareHashAndPassword(r.secretHash, []byte(password)) == nil
}

func (r *Room) Join(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= r.maxUsers {
		return ErrRoomFull
	}

	for _, member := range r.members {
		if member == name {
			return ErrNameTaken
		}
	}

	r.members = append(r.members, name)
	r.emptySince = time.Time{}

	return nil
}

// Leave удаляет участника; empty=true, если комната опустела
func (r *Room) Leave(name string, now time.Time) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, member := range r.members {
		if member == name {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}

	if len(r.members) == 0 {
		r.emptySince = now
		return true
	}

	return false
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.members)
}

// ExpiredSince сообщает, пустует ли комната дольше ttl
func (r *Room) ExpiredSince(ttl time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) > 0 || r.emptySince.IsZero() {
		return false
	}

	return now.Sub(r.emptySince) >= ttl
}

// AddItems добавляет треки в хвост. Если плейлист был пуст, выбирается
// нулевой курсор и включается автовоспроизведение с нуля.
func (r *Room) AddItems(items []MediaItem, now time.Time) (added, dropped int, autoplayed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasEmpty := r.playlist.Len() == 0

	added, dropped = r.playlist.Append(items)
	if added == 0 {
		return 0, dropped, false
	}

	r.rev++

	if wasEmpty {
		r.anchor = NewAnchor(0, true, now)
		autoplayed = true
	}

	return added, dropped, autoplayed
}

// Control обрабатывает play/pause: перезакрепляет якорь на переданной
// позиции с новым состоянием воспроизведения.
func (r *Room) Control(play bool, position float64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.anchor = NewAnchor(position, play, now)
}

// Seek двигает позицию, сохраняя play/pause
func (r *Room) Seek(position float64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.anchor = NewAnchor(position, r.anchor.Playing, now)
}

// ForceSync - принудительная перезапись и позиции, и состояния
func (r *Room) ForceSync(position float64, playing bool, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.anchor = NewAnchor(position, playing, now)
}

// AdvanceNext переходит к следующему треку с обнулением якоря.
// false - очередь исчерпана, плейлист не изменен.
func (r *Room) AdvanceNext(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.playlist.Advance() {
		return false
	}

	r.rev++
	r.anchor = NewAnchor(0, true, now)

	return true
}

func (r *Room) ShuffleFuture() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.playlist.ShuffleFuture()
	r.rev++
}

func (r *Room) RemoveAt(index int) (MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed, err := r.playlist.RemoveAt(index)
	if err != nil {
		return MediaItem{}, err
	}

	r.rev++

	return removed, nil
}

func (r *Room) SetContinuation(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.continuationEnabled = enabled
}

func (r *Room) ContinuationEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.continuationEnabled
}

// State снимает копию состояния; пароль в снимок не попадает
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make([]string, len(r.members))
	copy(members, r.members)

	return RoomState{
		Playlist:            r.playlist.Items(),
		Cursor:              r.playlist.Cursor(),
		Anchor:              r.anchor,
		ContinuationEnabled: r.continuationEnabled,
		Members:             members,
	}
}

// AdvisorView - снимок для Auto-DJ: недавние названия, занятые ID и
// ревизия плейлиста. ok=false, если продолжение сейчас неуместно
// (выключено, пусто или нет места).
func (r *Room) AdvisorView(historyLen int) (titles []string, ids map[string]struct{}, rev uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.continuationEnabled || r.playlist.Len() == 0 || r.playlist.Remaining() <= 0 {
		return nil, nil, 0, false
	}

	titles = r.playlist.RecentTitles(historyLen)

	ids = make(map[string]struct{}, r.playlist.Len())
	for _, item := range r.playlist.Items() {
		ids[item.ID] = struct{}{}
	}

	return titles, ids, r.rev, true
}

// ApplyAutoAdvance добавляет трек от Auto-DJ и переходит на него, но
// только если плейлист не менялся с момента снимка (rev совпадает).
// Устаревший результат отбрасывается без побочных эффектов.
func (r *Room) ApplyAutoAdvance(item MediaItem, rev uint64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rev != rev || r.playlist.Remaining() <= 0 {
		return false
	}

	if added, _ := r.playlist.Append([]MediaItem{item}); added == 0 {
		return false
	}

	if !r.playlist.Advance() {
		return false
	}

	r.rev++
	r.anchor = NewAnchor(0, true, now)

	return true
}
