package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/geo"
	"civicwatch/internal/ratelimit"
	"civicwatch/internal/station"
	"civicwatch/internal/user"
)

var base = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	reports  *InMemoryStore
	reviews  *InMemoryReviewStore
	users    *user.InMemoryStore
	stations *station.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	limiter, err := ratelimit.New(ratelimit.NewInMemoryCounterStore())
	require.NoError(t, err)

	f := &fixture{
		reports:  NewInMemoryStore(),
		reviews:  NewInMemoryReviewStore(),
		users:    user.NewInMemoryStore(),
		stations: station.NewInMemoryStore(),
	}
	f.svc, err = NewService(f.reports, f.reviews, f.users, f.stations, limiter)
	require.NoError(t, err)
	return f
}

func (f *fixture) addUser(t *testing.T, role user.Role) *user.User {
	t.Helper()
	u := &user.User{
		ID:        id.NewUserID(),
		Email:     u4email(role),
		Role:      role,
		CreatedAt: base,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func u4email(role user.Role) string {
	return string(role) + "-" + id.NewUserID().String() + "@example.com"
}

func (f *fixture) addStation(t *testing.T, name string, lat, lon float64) *station.Station {
	t.Helper()
	st := &station.Station{
		ID:        id.NewStationID(),
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		Active:    true,
		CreatedAt: base,
	}
	require.NoError(t, f.stations.Create(context.Background(), st))
	return st
}

func asUser(u *user.User, ts time.Time) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), u.ID)
	ctx = requestcontext.WithUserRole(ctx, string(u.Role))
	return requestcontext.WithTime(ctx, ts)
}

func validInput() SubmitInput {
	return SubmitInput{
		Title:      "Broken streetlight",
		Body:       "Streetlight out on Main St",
		Category:   CategoryInfrastructure,
		Coordinate: &geo.Coordinate{Latitude: 0.001, Longitude: 0.001},
		Address:    "Main St 1",
	}
}

func TestService_Submit(t *testing.T) {
	t.Run("creates a submitted report with badge snapshot and jurisdiction", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleTrustedReporter)
		near := f.addStation(t, "Central", 0, 0)
		f.addStation(t, "Far", 10, 10)

		r, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)
		assert.Equal(t, StatusSubmitted, r.Status)
		assert.Equal(t, "trusted", r.PublisherBadge)
		require.NotNil(t, r.StationID)
		assert.Equal(t, near.ID, *r.StationID)
		assert.Nil(t, r.Moderation)
		assert.Equal(t, base, r.CreatedAt)
	})

	t.Run("no coordinate means no pre-assignment", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)
		f.addStation(t, "Central", 0, 0)

		in := validInput()
		in.Coordinate = nil
		r, err := f.svc.Submit(asUser(publisher, base), in)
		require.NoError(t, err)
		assert.Nil(t, r.StationID)
	})

	t.Run("standard tier submits two per day, third is rate limited", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)

		for i := 0; i < 2; i++ {
			_, err := f.svc.Submit(asUser(publisher, base.Add(time.Duration(i)*time.Hour)), validInput())
			require.NoError(t, err)
		}

		_, err := f.svc.Submit(asUser(publisher, base.Add(3*time.Hour)), validInput())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

		// Next day the quota is back.
		_, err = f.svc.Submit(asUser(publisher, base.Add(25*time.Hour)), validInput())
		require.NoError(t, err)
	})

	t.Run("trusted tier gets the larger ceiling", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleTrustedReporter)

		for i := 0; i < 10; i++ {
			_, err := f.svc.Submit(asUser(publisher, base), validInput())
			require.NoError(t, err)
		}
		_, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	t.Run("rejected validation does not consume quota", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)

		in := validInput()
		in.Title = ""
		for i := 0; i < 3; i++ {
			_, err := f.svc.Submit(asUser(publisher, base), in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}

		// The full daily allowance is still available.
		_, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)
		_, err = f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)
	})

	t.Run("anonymous submission is unauthorized", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Submit(requestcontext.WithTime(context.Background(), base), validInput())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestService_Edit(t *testing.T) {
	f := newFixture(t)
	publisher := f.addUser(t, user.RoleCitizen)
	other := f.addUser(t, user.RoleCitizen)

	r, err := f.svc.Submit(asUser(publisher, base), validInput())
	require.NoError(t, err)

	t.Run("publisher edits content and the report stays submitted", func(t *testing.T) {
		title := "Broken streetlight, pole 7"
		got, err := f.svc.Edit(asUser(publisher, base.Add(time.Hour)), r.ID, EditInput{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
		assert.Equal(t, StatusSubmitted, got.Status)
		assert.Equal(t, base.Add(time.Hour), got.UpdatedAt)
	})

	t.Run("rejected report returns to submitted on edit", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)
		r, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)

		require.NoError(t, f.reports.UpdateStatus(context.Background(), r.ID, StatusSubmitted, StatusRejected,
			ModerationStamp{Note: "blurry", ModeratorID: id.NewUserID(), At: base}, nil))

		body := "Clearer description"
		got, err := f.svc.Edit(asUser(publisher, base.Add(time.Hour)), r.ID, EditInput{Body: &body})
		require.NoError(t, err)
		assert.Equal(t, StatusSubmitted, got.Status)
	})

	t.Run("verified report cannot be edited", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)
		r, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)

		require.NoError(t, f.reports.UpdateStatus(context.Background(), r.ID, StatusSubmitted, StatusVerified,
			ModerationStamp{Note: "ok", ModeratorID: id.NewUserID(), At: base}, nil))

		title := "new title"
		_, err = f.svc.Edit(asUser(publisher, base.Add(time.Hour)), r.ID, EditInput{Title: &title})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("non-publisher is forbidden", func(t *testing.T) {
		title := "hijack"
		_, err := f.svc.Edit(asUser(other, base), r.ID, EditInput{Title: &title})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("publisher hard-deletes own unverified report", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)
		r, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(asUser(publisher, base), r.ID))
		_, err = f.reports.FindByID(context.Background(), r.ID)
		require.Error(t, err)
	})

	t.Run("verified report is soft-deleted for its publisher", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)
		r, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)
		require.NoError(t, f.reports.UpdateStatus(context.Background(), r.ID, StatusSubmitted, StatusVerified,
			ModerationStamp{Note: "ok", ModeratorID: id.NewUserID(), At: base}, nil))

		require.NoError(t, f.svc.Delete(asUser(publisher, base.Add(time.Hour)), r.ID))

		// Gone from reads, still physically present.
		_, err = f.svc.Get(asUser(publisher, base.Add(time.Hour)), r.ID)
		require.Error(t, err)
		require.NoError(t, f.reports.Delete(context.Background(), r.ID))
	})

	t.Run("admin hard-deletes anything", func(t *testing.T) {
		f := newFixture(t)
		publisher := f.addUser(t, user.RoleCitizen)
		admin := f.addUser(t, user.RoleAdmin)
		r, err := f.svc.Submit(asUser(publisher, base), validInput())
		require.NoError(t, err)
		require.NoError(t, f.reports.UpdateStatus(context.Background(), r.ID, StatusSubmitted, StatusVerified,
			ModerationStamp{Note: "ok", ModeratorID: admin.ID, At: base}, nil))

		require.NoError(t, f.svc.Delete(asUser(admin, base), r.ID))
		err = f.reports.Delete(context.Background(), r.ID)
		require.Error(t, err, "already hard-deleted")
	})
}

func TestService_Visibility(t *testing.T) {
	f := newFixture(t)
	publisher := f.addUser(t, user.RoleCitizen)
	stranger := f.addUser(t, user.RoleCitizen)
	moderator := f.addUser(t, user.RoleModerator)

	r, err := f.svc.Submit(asUser(publisher, base), validInput())
	require.NoError(t, err)

	t.Run("submitted report hidden from strangers and anonymous", func(t *testing.T) {
		_, err := f.svc.Get(asUser(stranger, base), r.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = f.svc.Get(context.Background(), r.ID)
		require.Error(t, err)
	})

	t.Run("publisher and moderator see it", func(t *testing.T) {
		_, err := f.svc.Get(asUser(publisher, base), r.ID)
		require.NoError(t, err)
		_, err = f.svc.Get(asUser(moderator, base), r.ID)
		require.NoError(t, err)
	})

	t.Run("verified report is public", func(t *testing.T) {
		require.NoError(t, f.reports.UpdateStatus(context.Background(), r.ID, StatusSubmitted, StatusVerified,
			ModerationStamp{Note: "ok", ModeratorID: moderator.ID, At: base}, nil))

		got, err := f.svc.Get(context.Background(), r.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusVerified, got.Status)
	})

	t.Run("anonymous listing shows only verified", func(t *testing.T) {
		_, err := f.svc.Submit(asUser(publisher, base.Add(time.Hour)), validInput())
		require.NoError(t, err)

		public, err := f.svc.List(context.Background(), Filter{})
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, r.ID, public[0].ID)

		all, err := f.svc.List(asUser(moderator, base), Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestService_Counters(t *testing.T) {
	f := newFixture(t)
	publisher := f.addUser(t, user.RoleCitizen)
	moderator := f.addUser(t, user.RoleModerator)

	r, err := f.svc.Submit(asUser(publisher, base), validInput())
	require.NoError(t, err)
	require.NoError(t, f.reports.UpdateStatus(context.Background(), r.ID, StatusSubmitted, StatusVerified,
		ModerationStamp{Note: "ok", ModeratorID: moderator.ID, At: base}, nil))

	require.NoError(t, f.svc.RecordView(context.Background(), r.ID))
	require.NoError(t, f.svc.RecordView(context.Background(), r.ID))
	require.NoError(t, f.svc.RecordShare(context.Background(), r.ID))

	got, err := f.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)
	assert.Equal(t, int64(1), got.Shares)
}

func TestService_Reviews(t *testing.T) {
	f := newFixture(t)
	publisher := f.addUser(t, user.RoleCitizen)
	complainant := f.addUser(t, user.RoleCitizen)
	moderator := f.addUser(t, user.RoleModerator)

	r, err := f.svc.Submit(asUser(publisher, base), validInput())
	require.NoError(t, err)

	t.Run("only verified reports accept reviews", func(t *testing.T) {
		_, err := f.svc.FileReview(asUser(complainant, base), r.ID, "inaccurate")
		require.Error(t, err)
	})

	require.NoError(t, f.reports.UpdateStatus(context.Background(), r.ID, StatusSubmitted, StatusVerified,
		ModerationStamp{Note: "ok", ModeratorID: moderator.ID, At: base}, nil))

	t.Run("citizen files a complaint", func(t *testing.T) {
		rv, err := f.svc.FileReview(asUser(complainant, base.Add(time.Hour)), r.ID, "duplicate of another report")
		require.NoError(t, err)
		assert.Equal(t, ReviewOpen, rv.Status)
		assert.Equal(t, complainant.ID, rv.ReporterID)

		reviews, err := f.svc.ListReviews(asUser(moderator, base), r.ID)
		require.NoError(t, err)
		assert.Len(t, reviews, 1)
	})

	t.Run("blank reason is rejected", func(t *testing.T) {
		_, err := f.svc.FileReview(asUser(complainant, base), r.ID, "  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
