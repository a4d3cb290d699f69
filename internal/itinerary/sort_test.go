package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routewise/routewise/internal/models"
)

func orderedPlace(key string, dayOrder *int, scheduledTime string) models.ItineraryPlace {
	return models.ItineraryPlace{
		TripPlace:     models.TripPlace{PlaceID: key, Name: key},
		DayOrder:      dayOrder,
		ScheduledTime: scheduledTime,
	}
}

func TestPlaceLess(t *testing.T) {
	tests := []struct {
		name string
		a    models.ItineraryPlace
		b    models.ItineraryPlace
		want bool
	}{
		{
			name: "both ordered, a first",
			a:    orderedPlace("a", models.IntPtr(0), "18:00"),
			b:    orderedPlace("b", models.IntPtr(1), "08:00"),
			want: true,
		},
		{
			name: "both ordered, b first despite earlier time on a",
			a:    orderedPlace("a", models.IntPtr(2), "06:00"),
			b:    orderedPlace("b", models.IntPtr(1), "20:00"),
			want: false,
		},
		{
			name: "equal orders are not less",
			a:    orderedPlace("a", models.IntPtr(1), "08:00"),
			b:    orderedPlace("b", models.IntPtr(1), "20:00"),
			want: false,
		},
		{
			name: "one order missing falls back to times",
			a:    orderedPlace("a", models.IntPtr(5), "08:00"),
			b:    orderedPlace("b", nil, "09:00"),
			want: true,
		},
		{
			name: "no orders, times decide",
			a:    orderedPlace("a", nil, "10:15"),
			b:    orderedPlace("b", nil, "10:30"),
			want: true,
		},
		{
			name: "missing time defaults to midnight",
			a:    orderedPlace("a", nil, ""),
			b:    orderedPlace("b", nil, "00:01"),
			want: true,
		},
		{
			name: "both times missing tie",
			a:    orderedPlace("a", nil, ""),
			b:    orderedPlace("b", nil, ""),
			want: false,
		},
		{
			name: "equal times are not less",
			a:    orderedPlace("a", nil, "12:00"),
			b:    orderedPlace("b", nil, "12:00"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlaceLess(&tt.a, &tt.b))
		})
	}
}

func TestSortDayPlaces(t *testing.T) {
	places := []models.ItineraryPlace{
		orderedPlace("c", models.IntPtr(2), "06:00"),
		orderedPlace("a", models.IntPtr(0), "18:00"),
		orderedPlace("b", models.IntPtr(1), "12:00"),
	}

	SortDayPlaces(places)

	assert.Equal(t, "a", places[0].PlaceID)
	assert.Equal(t, "b", places[1].PlaceID)
	assert.Equal(t, "c", places[2].PlaceID)
}

func TestSortDayPlaces_TimeFallback(t *testing.T) {
	places := []models.ItineraryPlace{
		orderedPlace("late", nil, "21:00"),
		orderedPlace("untimed", nil, ""),
		orderedPlace("morning", nil, "08:30"),
	}

	SortDayPlaces(places)

	assert.Equal(t, "untimed", places[0].PlaceID, "empty time sorts as 00:00")
	assert.Equal(t, "morning", places[1].PlaceID)
	assert.Equal(t, "late", places[2].PlaceID)
}

func TestSortDayPlaces_StableOnTies(t *testing.T) {
	places := []models.ItineraryPlace{
		orderedPlace("first", nil, "12:00"),
		orderedPlace("second", nil, "12:00"),
		orderedPlace("third", nil, "12:00"),
	}

	SortDayPlaces(places)

	assert.Equal(t, "first", places[0].PlaceID)
	assert.Equal(t, "second", places[1].PlaceID)
	assert.Equal(t, "third", places[2].PlaceID)
}

func TestSortDayPlaces_Empty(t *testing.T) {
	SortDayPlaces(nil)
	SortDayPlaces([]models.ItineraryPlace{})
}
