package booking

import (
	"context"
	"testing"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/availability"
	"github.com/RentalGrid/RentalGrid/internal/branch"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/dateutil"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	branches store.Repository[model.Branch]
	users    store.Repository[model.User]
	vehicles store.Repository[model.Vehicle]
	bookings store.Repository[model.Booking]
	moves    store.Repository[model.VehicleMove]

	dir   *branch.Directory
	coord *Coordinator

	home  *model.Branch // 本节点分支，车辆归属地
	other *model.Branch
	user  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		branches: store.NewMemory[model.Branch](
			func(b *model.Branch) uint { return b.ID },
			func(b *model.Branch, id uint) { b.ID = id },
		),
		users: store.NewMemory[model.User](
			func(u *model.User) uint { return u.ID },
			func(u *model.User, id uint) { u.ID = id },
		),
		vehicles: store.NewMemory[model.Vehicle](
			func(v *model.Vehicle) uint { return v.ID },
			func(v *model.Vehicle, id uint) { v.ID = id },
		),
		bookings: store.NewMemory[model.Booking](
			func(b *model.Booking) uint { return b.ID },
			func(b *model.Booking, id uint) { b.ID = id },
		),
		moves: store.NewMemory[model.VehicleMove](
			func(m *model.VehicleMove) uint { return m.ID },
			func(m *model.VehicleMove, id uint) { m.ID = id },
		),
	}

	f.home = &model.Branch{ClusterID: 1, Name: "Central"}
	f.other = &model.Branch{ClusterID: 2, Name: "Riverside"}
	require.NoError(t, f.branches.Create(ctx, f.home))
	require.NoError(t, f.branches.Create(ctx, f.other))

	var err error
	f.dir, err = branch.Load(ctx, f.branches, 1)
	require.NoError(t, err)

	f.user = &model.User{FullName: "Ada Renter", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, f.users.Create(ctx, f.user))

	resolver := availability.NewResolver(f.vehicles, f.bookings, f.moves, nil)
	f.coord = NewCoordinator(f.dir.Self(), f.dir, nil, resolver,
		f.bookings, f.moves, f.vehicles, f.users, nil, nil)
	return f
}

func (f *fixture) addVehicle(t *testing.T, price float64) *model.Vehicle {
	t.Helper()
	v := &model.Vehicle{
		BranchID:           f.home.ID,
		Status:             model.VehicleAvailable,
		Type:               model.TypeSmallCar,
		RegistrationNumber: "AB-123-CD",
		Doors:              5, Seats: 5,
		PricePerDay: price,
		Name:        "hatchback",
	}
	require.NoError(t, f.vehicles.Create(context.Background(), v))
	return v
}

func futureDay(offset int) string {
	return dateutil.Format(dateutil.Today().AddDate(0, 0, offset))
}

func createInput(branchID, vehicleID uint, pickupOffset, days int) *contract.CreateBookingInput {
	return &contract.CreateBookingInput{
		BookingBranchID: branchID,
		VehicleID:       vehicleID,
		PickupDate:      futureDay(pickupOffset),
		ReturnDate:      futureDay(pickupOffset + days - 1),
		CardNumber:      "4111111111111111",
		CardExpiry:      "12/28",
		CardCVC:         "123",
	}
}

func TestCreateBookingSevenDaysOkEightFails(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	out, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 5, 7))
	require.NoError(t, err)
	assert.Equal(t, 7, out.DaysCount)
	assert.True(t, out.Validated)
	assert.False(t, out.RequireVehicleMove)
	assert.NotEmpty(t, out.Reference)

	_, err = f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 20, 8))
	require.Error(t, err)
	assert.Equal(t, apperr.StatusInvalid, apperr.Status(err))
}

func TestCreateBookingSameDayLocalRejectedCrossBranchAllowed(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	// 本地当天租当天还：占用窗不递增，拒绝
	_, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 5, 1))
	require.Error(t, err)
	assert.Equal(t, apperr.StatusInvalid, apperr.Status(err))
	assert.Equal(t, "Return date must be after the pickup date", apperr.Message(err))

	// 跨分支当天预订：调拨窗前后各一天，占用窗成立
	out, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.other.ID, v.ID, 5, 1))
	require.NoError(t, err)
	assert.True(t, out.RequireVehicleMove)
	assert.Equal(t, 1, out.DaysCount)
}

func TestCreateBookingCrossBranchCreatesBracketingMove(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	// 客户在 Riverside 下单，车在 Central（本节点）
	out, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.other.ID, v.ID, 5, 3))
	require.NoError(t, err)
	assert.True(t, out.RequireVehicleMove)
	require.NotNil(t, out.VehicleMove)
	assert.Equal(t, futureDay(4), out.VehicleMove.MoveDate)
	assert.Equal(t, futureDay(8), out.VehicleMove.ReturnDate)
	assert.Equal(t, "Riverside", out.Branch)

	// 双向关联
	stored, err := f.bookings.GetByID(ctx, out.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VehicleMoveID)
	mv, err := f.moves.GetByID(ctx, *stored.VehicleMoveID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, mv.BookingID)
}

func TestCreateBookingPriceRounding(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 12.999)

	out, err := f.coord.CreateBooking(context.Background(), int(f.user.ID), createInput(f.home.ID, v.ID, 5, 3))
	require.NoError(t, err)
	assert.InDelta(t, 39.0, out.Price, 1e-9) // round(12.999*3, 2)
}

func TestCreateBookingDoubleBookingRejected(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	_, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 5, 3))
	require.NoError(t, err)

	_, err = f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 6, 2))
	assert.ErrorIs(t, err, apperr.ErrVehicleUnavailable)
}

func TestValidatedEffectiveWindowsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	// 连续尝试多笔互相交错的预订，只有不相交的能成
	offsets := [][2]int{{3, 2}, {4, 2}, {6, 3}, {7, 1}, {10, 2}}
	for _, o := range offsets {
		_, _ = f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, o[0], o[1]))
	}

	validated, err := f.bookings.Find(ctx, func(b *model.Booking) bool { return b.Validated })
	require.NoError(t, err)
	for i := range validated {
		for j := i + 1; j < len(validated); j++ {
			wi := availability.Window{Start: validated[i].PickupDate, End: validated[i].ReturnDate}
			wj := availability.Window{Start: validated[j].PickupDate, End: validated[j].ReturnDate}
			assert.False(t, wi.Overlaps(wj),
				"bookings %d and %d overlap", validated[i].ID, validated[j].ID)
		}
	}
}

func TestChangeBookingStatusRevalidationConflict(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	first, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 5, 3))
	require.NoError(t, err)

	// 作废后窗口空出，第二笔同窗预订成功
	_, err = f.coord.ChangeBookingStatus(ctx, int(f.user.ID), &contract.ChangeBookingStatusInput{BookingID: first.ID, Validated: false})
	require.NoError(t, err)
	_, err = f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 5, 3))
	require.NoError(t, err)

	// 第一笔重新确认必须失败：窗口已被占走
	_, err = f.coord.ChangeBookingStatus(ctx, int(f.user.ID), &contract.ChangeBookingStatusInput{BookingID: first.ID, Validated: true})
	assert.ErrorIs(t, err, apperr.ErrVehicleUnavailable)

	// 作废从不做可用性检查
	out, err := f.coord.ChangeBookingStatus(ctx, int(f.user.ID), &contract.ChangeBookingStatusInput{BookingID: first.ID, Validated: false})
	require.NoError(t, err)
	assert.False(t, out.Validated)
}

func TestCreateBookingForAnotherUser(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	staff := &model.User{FullName: "Bo Staff", Email: "bo@example.com", PasswordHash: "x", Staff: true}
	require.NoError(t, f.users.Create(ctx, staff))

	in := createInput(f.home.ID, v.ID, 5, 2)
	in.BookingOwnerUserID = f.user.ID
	_, err := f.coord.CreateBooking(ctx, int(staff.ID), in)
	require.NoError(t, err)

	stored, err := f.bookings.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, f.user.ID, stored[0].UserID, "booking must belong to the customer, not the staff caller")
}

func TestGetVehicleMovesDirections(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	// 跨分支预订：预订分支 Riverside，车辆归属 Central（本节点）
	out, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.other.ID, v.ID, 5, 2))
	require.NoError(t, err)
	require.NotNil(t, out.VehicleMove)

	// 本节点是车辆归属地：到站方向能看到，离站方向看不到
	incoming, err := f.coord.GetVehicleMoves(ctx, &contract.GetVehicleMovesInput{Outgoing: false})
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, out.ID, incoming[0].ID)

	outgoing, err := f.coord.GetVehicleMoves(ctx, &contract.GetVehicleMovesInput{Outgoing: true})
	require.NoError(t, err)
	assert.Empty(t, outgoing, "outgoing direction is keyed on the booking branch")
}

func TestBookingsSortedByPickupDate(t *testing.T) {
	f := newFixture(t)
	v := f.addVehicle(t, 50)
	ctx := context.Background()

	_, err := f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 10, 2))
	require.NoError(t, err)
	_, err = f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, v.ID, 3, 2))
	require.NoError(t, err)

	list, err := f.coord.GetUserBookings(ctx, int(f.user.ID), f.home.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	first, err := time.Parse("2006-01-02", list[0].PickupDate)
	require.NoError(t, err)
	second, err := time.Parse("2006-01-02", list[1].PickupDate)
	require.NoError(t, err)
	assert.True(t, first.Before(second))
}

func TestCreateBookingRejectsMissingBranchAndUnknownVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coord.CreateBooking(ctx, int(f.user.ID), &contract.CreateBookingInput{VehicleID: 1})
	assert.Equal(t, apperr.StatusInvalid, apperr.Status(err))

	_, err = f.coord.CreateBooking(ctx, int(f.user.ID), createInput(f.home.ID, 999, 5, 2))
	assert.ErrorIs(t, err, apperr.ErrVehicleUnavailable)
}
