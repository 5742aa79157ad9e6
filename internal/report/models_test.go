package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civicwatch/pkg/domain"

	"civicwatch/internal/geo"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusDraft, StatusSubmitted, StatusVerified, StatusRejected, StatusTakenDown}

	allowed := map[Status][]Status{
		StatusSubmitted: {StatusVerified, StatusRejected, StatusTakenDown},
		StatusVerified:  {StatusTakenDown},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_Editable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.True(t, StatusSubmitted.Editable())
	assert.True(t, StatusRejected.Editable())
	assert.False(t, StatusVerified.Editable())
	assert.False(t, StatusTakenDown.Editable())
}

func TestStatus_Public(t *testing.T) {
	assert.True(t, StatusVerified.Public())
	assert.False(t, StatusSubmitted.Public())
	assert.False(t, StatusTakenDown.Public())
}

func TestReport_Validate(t *testing.T) {
	valid := Report{
		ID:          id.NewReportID(),
		Title:       "Broken streetlight",
		Body:        "Streetlight out on Main St",
		Category:    CategoryInfrastructure,
		Status:      StatusSubmitted,
		PublisherID: id.NewUserID(),
	}
	require.NoError(t, valid.Validate())

	t.Run("blank title", func(t *testing.T) {
		r := valid
		r.Title = " "
		require.Error(t, r.Validate())
	})

	t.Run("unknown category", func(t *testing.T) {
		r := valid
		r.Category = Category("gossip")
		require.Error(t, r.Validate())
	})

	t.Run("status must be a defined value", func(t *testing.T) {
		r := valid
		r.Status = Status("pending")
		require.Error(t, r.Validate())
	})

	t.Run("coordinate out of range", func(t *testing.T) {
		r := valid
		r.Coordinate = &geo.Coordinate{Latitude: 91, Longitude: 0}
		require.Error(t, r.Validate())

		r.Coordinate = &geo.Coordinate{Latitude: 0, Longitude: -181}
		require.Error(t, r.Validate())
	})
}
