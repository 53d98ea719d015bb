package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/availability"
	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/apperr"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/kafka"
	"github.com/sool-market/service-reservation/internal/session"
	"github.com/sool-market/service-reservation/internal/upstream"
)

const (
	testSessionID = "5f0c7f7e-2f4e-4d1e-9a55-0c1b7a0c9e11"
	testTopic     = "reservation.events"
)

var (
	testCaller = auth.Identity{UserID: "user-7", Nickname: "kim", AccessToken: "tok"}

	testBrewery = reservation.Brewery{
		ID:   3,
		Name: "Hanyang",
		Experiences: []reservation.Experience{
			{ID: 11, Name: "Makgeolli tasting", Price: 25000, MaxCount: 6, BreweryID: 3, BreweryName: "Hanyang"},
			{ID: 12, Name: "Soju distilling", Price: 40000, MaxCount: 4, BreweryID: 3, BreweryName: "Hanyang"},
		},
	}

	novSecondSlots = reservation.SlotAvailability{
		Times:           []string{"11:00", "14:00", "16:00"},
		RemainingByTime: map[string]int{"14:00": 2, "16:00": 0},
	}
)

type formFixture struct {
	svc       *FormService
	store     *memStore
	platform  *MockPlatform
	calendar  *MockCalendar
	feed      *MockSlotFeed
	publisher *MockPublisher
	clock     time.Time
}

func setupFormService(t *testing.T) *formFixture {
	t.Helper()
	fx := &formFixture{
		store:     newMemStore(),
		platform:  new(MockPlatform),
		calendar:  new(MockCalendar),
		feed:      new(MockSlotFeed),
		publisher: new(MockPublisher),
		clock:     time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC),
	}
	fx.svc = NewFormService(fx.store, fx.platform, fx.calendar, fx.feed, fx.publisher, testTopic, zap.NewNop())
	fx.svc.now = func() time.Time { return fx.clock }

	_, err := fx.svc.StartSession(context.Background(), testCaller, testSessionID)
	require.NoError(t, err)
	return fx
}

// pickTasting selects experience 11 and 2026-11-02.
func (fx *formFixture) pickTasting(t *testing.T) *FormView {
	t.Helper()
	ctx := context.Background()
	fx.platform.On("Brewery", mock.Anything, int64(3)).Return(testBrewery, nil)
	fx.calendar.On("UnavailableDates", mock.Anything, int64(11), 2026, 11).
		Return(reservation.NewUnavailableDateSet("2026-11-05"))
	fx.feed.On("Fetch", mock.Anything, "form:"+testSessionID, mock.Anything, int64(11), "2026-11-02").
		Return(novSecondSlots, nil)

	_, err := fx.svc.SelectExperience(ctx, testCaller, testSessionID, SelectExperienceRequest{BreweryID: 3, ExperienceID: 11})
	require.NoError(t, err)
	view, err := fx.svc.SelectDate(ctx, testCaller, testSessionID, SelectDateRequest{Date: "2026-11-02"})
	require.NoError(t, err)
	return view
}

// fillForm completes a valid draft: 11:00, two people, payer Kim.
func (fx *formFixture) fillForm(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	fx.pickTasting(t)
	_, err := fx.svc.SelectTime(ctx, testCaller, testSessionID, SelectTimeRequest{Time: "11:00"})
	require.NoError(t, err)
	_, err = fx.svc.SetHeadCount(ctx, testCaller, testSessionID, SetHeadCountRequest{HeadCount: 2})
	require.NoError(t, err)
	_, err = fx.svc.SetContact(ctx, testCaller, testSessionID, SetContactRequest{PayerName: "Kim", PayerPhone: "010-1234-5678"})
	require.NoError(t, err)
}

func TestFormService_SelectExperienceLoadsCurrentMonth(t *testing.T) {
	fx := setupFormService(t)
	view := fx.pickTasting(t)

	assert.Equal(t, "2026-11", view.Month)
	assert.Equal(t, []string{"2026-11-05"}, view.UnavailableDates)
	assert.Equal(t, int64(11), view.Experience.ID)
	require.Len(t, view.Times, 3)
	assert.True(t, view.CapacityKnown)
	assert.True(t, view.Times[2].SoldOut)
}

func TestFormService_ChangingExperienceResetsSelection(t *testing.T) {
	fx := setupFormService(t)
	fx.fillForm(t)
	fx.calendar.On("UnavailableDates", mock.Anything, int64(12), 2026, 11).
		Return(reservation.UnavailableDateSet{})

	view, err := fx.svc.SelectExperience(context.Background(), testCaller, testSessionID,
		SelectExperienceRequest{BreweryID: 3, ExperienceID: 12})
	require.NoError(t, err)

	assert.Equal(t, "", view.Date)
	assert.Equal(t, "", view.Time)
	assert.Equal(t, 1, view.HeadCount)
	assert.Empty(t, view.Times)
	assert.Empty(t, view.UnavailableDates)
	assert.Equal(t, "Kim", view.PayerName, "payer details survive an experience change")
}

func TestFormService_SelectExperienceUnknown(t *testing.T) {
	fx := setupFormService(t)
	fx.platform.On("Brewery", mock.Anything, int64(3)).Return(testBrewery, nil)

	_, err := fx.svc.SelectExperience(context.Background(), testCaller, testSessionID,
		SelectExperienceRequest{BreweryID: 3, ExperienceID: 99})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestFormService_SelectDateFetchesOnce(t *testing.T) {
	fx := setupFormService(t)
	fx.fillForm(t)
	fx.feed.AssertNumberOfCalls(t, "Fetch", 1)

	fx.feed.On("Fetch", mock.Anything, "form:"+testSessionID, mock.Anything, int64(11), "2026-11-03").
		Return(reservation.SlotAvailability{Times: []string{"10:00"}}, nil)

	view, err := fx.svc.SelectDate(context.Background(), testCaller, testSessionID, SelectDateRequest{Date: "2026-11-03"})
	require.NoError(t, err)

	fx.feed.AssertNumberOfCalls(t, "Fetch", 2)
	fx.feed.AssertCalled(t, "Fetch", mock.Anything, "form:"+testSessionID, int64(2), int64(11), "2026-11-03")
	assert.Equal(t, "2026-11-03", view.Date)
	assert.Equal(t, "", view.Time)
	assert.Equal(t, 1, view.HeadCount)
	require.Len(t, view.Times, 1)
	assert.Equal(t, 6, view.Times[0].EffectiveMax)
}

func TestFormService_SelectDateSuperseded(t *testing.T) {
	fx := setupFormService(t)
	fx.pickTasting(t)
	fx.feed.On("Fetch", mock.Anything, "form:"+testSessionID, mock.Anything, int64(11), "2026-11-04").
		Return(reservation.SlotAvailability{}, availability.ErrSuperseded)

	_, err := fx.svc.SelectDate(context.Background(), testCaller, testSessionID, SelectDateRequest{Date: "2026-11-04"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestFormService_SelectDateReselectedWhileLoading(t *testing.T) {
	fx := setupFormService(t)
	fx.pickTasting(t)
	ctx := context.Background()
	fx.feed.On("Fetch", mock.Anything, "form:"+testSessionID, int64(2), int64(11), "2026-11-03").
		Run(func(mock.Arguments) {
			// another request picks the same date again while these slots load
			sess, err := fx.store.Load(ctx, testSessionID)
			require.NoError(t, err)
			require.NoError(t, sess.Form.SelectDate("2026-11-03"))
			require.NoError(t, fx.store.Save(ctx, sess))
		}).
		Return(reservation.SlotAvailability{Times: []string{"10:00"}}, nil)

	_, err := fx.svc.SelectDate(ctx, testCaller, testSessionID, SelectDateRequest{Date: "2026-11-03"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	sess, err := fx.store.Load(ctx, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sess.Form.FetchSeq)
	assert.True(t, sess.Form.Slots.Empty(), "slots of the older selection are not applied")
}

func TestFormService_SelectUnavailableDate(t *testing.T) {
	fx := setupFormService(t)
	fx.pickTasting(t)

	_, err := fx.svc.SelectDate(context.Background(), testCaller, testSessionID, SelectDateRequest{Date: "2026-11-05"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, reservation.FieldSchedule, appErr.Field)
	fx.feed.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything, int64(11), "2026-11-05")

	view, err := fx.svc.View(context.Background(), testCaller, testSessionID)
	require.NoError(t, err)
	require.NotNil(t, view.Error)
	assert.Equal(t, reservation.FieldSchedule, view.Error.ScrollTo)
	assert.Equal(t, "2026-11-02", view.Date, "the previous selection is kept")

	fx.clock = fx.clock.Add(reservation.ErrorTTL)
	view, err = fx.svc.View(context.Background(), testCaller, testSessionID)
	require.NoError(t, err)
	assert.Nil(t, view.Error)
}

func TestFormService_SelectSoldOutTime(t *testing.T) {
	fx := setupFormService(t)
	fx.pickTasting(t)

	_, err := fx.svc.SelectTime(context.Background(), testCaller, testSessionID, SelectTimeRequest{Time: "16:00"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, reservation.FieldSchedule, appErr.Field)
}

func TestFormService_SetHeadCountClamps(t *testing.T) {
	fx := setupFormService(t)
	fx.pickTasting(t)
	ctx := context.Background()
	_, err := fx.svc.SelectTime(ctx, testCaller, testSessionID, SelectTimeRequest{Time: "14:00"})
	require.NoError(t, err)

	view, err := fx.svc.SetHeadCount(ctx, testCaller, testSessionID, SetHeadCountRequest{HeadCount: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, view.HeadCount)
	assert.Equal(t, 2, view.CurrentMax)
	assert.NotEmpty(t, view.Notice)
	assert.Equal(t, int64(50000), view.TotalAmount)
}

func TestFormService_SubmitSuccess(t *testing.T) {
	fx := setupFormService(t)
	fx.fillForm(t)

	fx.platform.On("Prepare", mock.Anything, upstream.PrepareRequest{
		ExperienceID: 11,
		HeadCount:    2,
		PayerName:    "Kim",
		PayerPhone:   "010-1234-5678",
		Date:         "2026-11-02",
		Time:         "11:00",
	}).Return("order-1", nil)
	fx.platform.On("Confirm", mock.Anything, mock.MatchedBy(func(req upstream.ConfirmRequest) bool {
		_, err := uuid.Parse(req.PaymentKey)
		return req.OrderID == "order-1" && req.TotalAmount == 50000 && err == nil
	})).Return(nil)
	fx.publisher.On("PublishEvent", mock.Anything, testTopic, "order-1", mock.MatchedBy(func(e kafka.CloudEvent) bool {
		return e.Type == EventReservationRequested
	})).Return(nil)

	result, err := fx.svc.Submit(context.Background(), testCaller, testSessionID)
	require.NoError(t, err)

	assert.Equal(t, "order-1", result.OrderID)
	assert.Equal(t, int64(50000), result.TotalAmount)
	assert.Equal(t, "PENDING", result.Status)
	fx.platform.AssertExpectations(t)
	fx.publisher.AssertExpectations(t)

	view, err := fx.svc.View(context.Background(), testCaller, testSessionID)
	require.NoError(t, err)
	assert.Nil(t, view.Experience, "the draft is discarded after booking")
	assert.Equal(t, 1, view.HeadCount)
}

func TestFormService_SubmitPrepareFailsLeavesStateUntouched(t *testing.T) {
	fx := setupFormService(t)
	fx.fillForm(t)
	before, err := fx.store.Load(context.Background(), testSessionID)
	require.NoError(t, err)
	savesBefore := fx.store.saves

	fx.platform.On("Prepare", mock.Anything, mock.Anything).
		Return("", &upstream.StatusError{Operation: upstream.OpPrepare, StatusCode: 409, Message: "slot is full"})

	_, err = fx.svc.Submit(context.Background(), testCaller, testSessionID)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindUpstream, appErr.Kind)
	assert.Equal(t, StepPrepare, appErr.Step)
	assert.Equal(t, "slot is full", appErr.Message)

	fx.platform.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	fx.publisher.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, savesBefore, fx.store.saves)

	after, err := fx.store.Load(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFormService_SubmitConfirmFails(t *testing.T) {
	fx := setupFormService(t)
	fx.fillForm(t)
	fx.platform.On("Prepare", mock.Anything, mock.Anything).Return("order-1", nil)
	fx.platform.On("Confirm", mock.Anything, mock.Anything).Return(errors.New("timeout"))

	_, err := fx.svc.Submit(context.Background(), testCaller, testSessionID)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, StepConfirm, appErr.Step)
	fx.platform.AssertNumberOfCalls(t, "Confirm", 1)

	view, err := fx.svc.View(context.Background(), testCaller, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, "11:00", view.Time, "the draft is kept for another attempt")
}

func TestFormService_SubmitValidation(t *testing.T) {
	fx := setupFormService(t)
	fx.fillForm(t)
	ctx := context.Background()
	_, err := fx.svc.SetContact(ctx, testCaller, testSessionID, SetContactRequest{PayerName: "Kim", PayerPhone: "010-123-456"})
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, testCaller, testSessionID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, reservation.FieldCustomer, appErr.Field)
	fx.platform.AssertNotCalled(t, "Prepare", mock.Anything, mock.Anything)

	view, err := fx.svc.View(ctx, testCaller, testSessionID)
	require.NoError(t, err)
	require.NotNil(t, view.Error)
	assert.Equal(t, reservation.FieldCustomer, view.Error.Field)
}

func TestFormService_UnknownCapacity(t *testing.T) {
	fx := setupFormService(t)
	ctx := context.Background()
	brewery := reservation.Brewery{
		ID:          4,
		Name:        "Seoul Craft",
		Experiences: []reservation.Experience{{ID: 13, Name: "Yakju class", Price: 30000, BreweryID: 4}},
	}
	fx.platform.On("Brewery", mock.Anything, int64(4)).Return(brewery, nil)
	fx.calendar.On("UnavailableDates", mock.Anything, int64(13), 2026, 11).Return(reservation.UnavailableDateSet{})
	fx.feed.On("Fetch", mock.Anything, "form:"+testSessionID, mock.Anything, int64(13), "2026-11-02").
		Return(reservation.SlotAvailability{Times: []string{"11:00"}}, nil)

	_, err := fx.svc.SelectExperience(ctx, testCaller, testSessionID, SelectExperienceRequest{BreweryID: 4, ExperienceID: 13})
	require.NoError(t, err)
	view, err := fx.svc.SelectDate(ctx, testCaller, testSessionID, SelectDateRequest{Date: "2026-11-02"})
	require.NoError(t, err)

	assert.False(t, view.CapacityKnown)
	require.Len(t, view.Times, 1)
	assert.False(t, view.Times[0].SoldOut)
	assert.False(t, view.Times[0].CapacityKnown)

	_, err = fx.svc.SelectTime(ctx, testCaller, testSessionID, SelectTimeRequest{Time: "11:00"})
	assert.ErrorIs(t, err, reservation.ErrCapacityUnknown)

	// a draft that reached a time before its capacity became unknown
	sess, err := fx.store.Load(ctx, testSessionID)
	require.NoError(t, err)
	sess.Form.Time = "11:00"
	sess.Form.SetContact("Kim", "010-1234-5678")
	require.NoError(t, fx.store.Save(ctx, sess))

	_, err = fx.svc.Submit(ctx, testCaller, testSessionID)
	assert.ErrorIs(t, err, reservation.ErrCapacityUnknown)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	fx.platform.AssertNotCalled(t, "Prepare", mock.Anything, mock.Anything)
}

func TestFormService_SubmitWithoutSchedule(t *testing.T) {
	fx := setupFormService(t)

	_, err := fx.svc.Submit(context.Background(), testCaller, testSessionID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, reservation.FieldSchedule, appErr.Field)
}

func TestFormService_OtherUsersSession(t *testing.T) {
	fx := setupFormService(t)

	_, err := fx.svc.View(context.Background(), auth.Identity{UserID: "user-8"}, testSessionID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = fx.svc.StartSession(context.Background(), auth.Identity{UserID: "user-8"}, testSessionID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestFormService_MissingSession(t *testing.T) {
	fx := setupFormService(t)

	_, err := fx.svc.View(context.Background(), testCaller, "no-such-session")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// staleOnceStore fails the first save as if another request had saved first.
type staleOnceStore struct {
	*memStore
	failed bool
}

func (s *staleOnceStore) Save(ctx context.Context, sess *session.Session) error {
	if !s.failed {
		s.failed = true
		return session.ErrStaleSession
	}
	return s.memStore.Save(ctx, sess)
}

func TestFormService_RetriesStaleSave(t *testing.T) {
	fx := setupFormService(t)
	store := &staleOnceStore{memStore: fx.store}
	fx.svc.sessions = store

	view, err := fx.svc.SetContact(context.Background(), testCaller, testSessionID,
		SetContactRequest{PayerName: "Kim", PayerPhone: "01012345678"})
	require.NoError(t, err)
	assert.True(t, store.failed)
	assert.Equal(t, "Kim", view.PayerName)
	assert.Equal(t, int64(2), view.Version)
}

func TestFormService_EndSession(t *testing.T) {
	fx := setupFormService(t)
	ctx := context.Background()
	other := auth.Identity{UserID: "user-8"}

	err := fx.svc.EndSession(ctx, other, testSessionID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, fx.svc.EndSession(ctx, testCaller, testSessionID))
	_, err = fx.store.Load(ctx, testSessionID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	err = fx.svc.EndSession(ctx, testCaller, testSessionID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestFormService_Discard(t *testing.T) {
	fx := setupFormService(t)
	fx.fillForm(t)

	view, err := fx.svc.Discard(context.Background(), testCaller, testSessionID)
	require.NoError(t, err)
	assert.Nil(t, view.Experience)
	assert.Empty(t, view.PayerName)
}
