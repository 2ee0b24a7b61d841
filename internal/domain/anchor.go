package domain

import "time"

// ClockAnchor - якорь воспроизведения: "в серверный момент AnchoredAt
// позиция была Position и с тех пор либо идет вперед (Playing), либо
// заморожена". Единственный источник правды о текущей позиции;
// клиентское накопленное время никогда не используется напрямую.
type ClockAnchor struct {
	Position   float64 `json:"anchor_time"`
	AnchoredAt float64 `json:"server_start_time"`
	Playing    bool    `json:"is_playing"`
}

// NewAnchor создает якорь, привязанный к моменту now
func NewAnchor(position float64, playing bool, now time.Time) ClockAnchor {
	return ClockAnchor{
		Position:   position,
		AnchoredAt: epochSeconds(now),
		Playing:    playing,
	}
}

// CurrentPosition экстраполирует позицию на момент now
func (a ClockAnchor) CurrentPosition(now time.Time) float64 {
	if !a.Playing {
		return a.Position
	}

	pos := a.Position + (epochSeconds(now) - a.AnchoredAt)
	if pos < 0 {
		return 0
	}

	return pos
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
