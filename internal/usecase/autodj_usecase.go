package usecase

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/qrave1/RoomWatch/internal/application/constant"
	"github.com/qrave1/RoomWatch/internal/domain"
	"github.com/qrave1/RoomWatch/internal/domain/events"
	"github.com/qrave1/RoomWatch/internal/domain/output"
)

const (
	// autoDJName подставляется в added_by у треков Auto-DJ
	autoDJName = "🤖 Auto-DJ"

	// legacyAutoPrefix - маркер старого формата, вычищается из истории
	// перед токенизацией
	legacyAutoPrefix = "📻 Auto: "

	historyLen    = 10
	candidateSize = 5
	minTokenLen   = 4
	queryTokens   = 3
)

// AutoDJUsecase продолжает воспроизведение, когда очередь исчерпана:
// синтезирует поисковый запрос из недавних названий и добавляет один
// подходящий трек. Неудача - штатный исход с уведомлением, не ошибка.
type AutoDJUsecase interface {
	// Continue возвращает true, если трек добавлен и воспроизведение
	// продолжилось
	Continue(ctx context.Context, requester uuid.UUID, room *domain.Room) bool
}

type autoDJUsecase struct {
	resolver  Resolver
	transport Transport

	timeout time.Duration
}

func NewAutoDJUsecase(resolver Resolver, transport Transport, timeout time.Duration) AutoDJUsecase {
	return &autoDJUsecase{
		resolver:  resolver,
		transport: transport,
		timeout:   timeout,
	}
}

func (u *autoDJUsecase) Continue(ctx context.Context, requester uuid.UUID, room *domain.Room) bool {
	titles, ids, rev, ok := room.AdvisorView(historyLen)
	if !ok {
		return false
	}

	query := SynthesizeQuery(titles)

	// Резолвер ходит в сеть: мьютекс комнаты на это время не держим
	searchCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	candidates, err := u.resolver.Search(searchCtx, query, candidateSize)
	if err != nil {
		slog.Warn(
			"auto dj search",
			slog.Any(constant.Error, err),
			slog.String(constant.RoomID, room.ID),
		)

		u.notifyFailure(requester)

		return false
	}

	fresh := make([]domain.ResolvedItem, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := ids[c.ID]; !dup {
			fresh = append(fresh, c)
		}
	}

	if len(fresh) == 0 {
		u.notifyFailure(requester)
		return false
	}

	pick := fresh[rand.Intn(len(fresh))]
	item := domain.NewMediaItem(pick, autoDJName, true)

	// Плейлист мог измениться, пока мы ходили в сеть: устаревший
	// результат отбрасывается без побочных эффектов
	if !room.ApplyAutoAdvance(item, rev, time.Now()) {
		return false
	}

	u.transport.SendToRoom(room.ID, events.TypeUpdateState, output.NewRoomPacket(room.State(), time.Now()))
	u.transport.SendToRoom(room.ID, events.TypeNotification, events.NotificationEvent{Text: "🤖 Auto-DJ queued " + shortTitle(item.Title)})

	return true
}

func (u *autoDJUsecase) notifyFailure(requester uuid.UUID) {
	u.transport.SendTo(requester, events.TypeNotification, events.NotificationEvent{Text: "🤖 Auto-DJ couldn't find a follow-up."})
}

// SynthesizeQuery строит поисковый запрос: три самых частых слова
// длиннее трех символов из недавних названий. Если подходящих слов
// нет - последнее название целиком.
func SynthesizeQuery(titles []string) string {
	counts := make(map[string]int)
	var order []string

	for _, title := range titles {
		title = strings.TrimPrefix(title, legacyAutoPrefix)

		for _, word := range tokenize(title) {
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	if len(order) == 0 {
		if len(titles) == 0 {
			return ""
		}

		return strings.TrimPrefix(titles[len(titles)-1], legacyAutoPrefix)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > queryTokens {
		order = order[:queryTokens]
	}

	return strings.Join(order, " ")
}

func tokenize(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			words = append(words, f)
		}
	}

	return words
}
