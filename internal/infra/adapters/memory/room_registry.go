package memory

import (
	"sync"

	"github.com/qrave1/RoomWatch/internal/application/metric"
	"github.com/qrave1/RoomWatch/internal/domain"
)

// RoomRegistry - потокобезопасный реестр комнат. Владеет созданием
// при первом входе и удалением протухших пустых комнат.
type RoomRegistry interface {
	// GetOrCreate возвращает комнату или создает ее конструктором.
	// created=true, если комната появилась этим вызовом.
	GetOrCreate(id string, create func() (*domain.Room, error)) (room *domain.Room, created bool, err error)

	Get(id string) (*domain.Room, bool)

	// Snapshot возвращает копию списка идентификаторов; итерация по ней
	// переживает конкурентные удаления
	Snapshot() []string

	Delete(id string)
}

type roomRegistry struct {
	rooms map[string]*domain.Room
	mu    sync.RWMutex
}

func NewRoomRegistry() RoomRegistry {
	return &roomRegistry{
		rooms: make(map[string]*domain.Room),
	}
}

func (r *roomRegistry) GetOrCreate(id string, create func() (*domain.Room, error)) (*domain.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, exists := r.rooms[id]; exists {
		return room, false, nil
	}

	room, err := create()
	if err != nil {
		return nil, false, err
	}

	r.rooms[id] = room
	metric.SetActiveRooms(len(r.rooms))

	return room, true, nil
}

func (r *roomRegistry) Get(id string) (*domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]

	return room, exists
}

func (r *roomRegistry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}

	return ids
}

func (r *roomRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[id]; exists {
		delete(r.rooms, id)
		metric.SetActiveRooms(len(r.rooms))
	}
}
