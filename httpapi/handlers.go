// Package httpapi exposes the data-access layer over HTTP. It parses
// requests, maps error codes to status codes, and nothing else; all
// domain logic lives behind vehicledb.DataAccess.
package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/vehicledb"
)

// defaultHistoryDays is the history window when the client sends none
const defaultHistoryDays = 30

// Handler serves the vehicle registry API
type Handler struct {
	data   vehicledb.DataAccess
	logger zerolog.Logger
}

// New creates a Handler over the given data access
func New(data vehicledb.DataAccess, logger zerolog.Logger) *Handler {
	return &Handler{data: data, logger: logger}
}

// Register mounts every route on the app
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "vehicledb"})
	})

	app.Post("/signup", h.handleSignup)
	app.Post("/login", h.handleLogin)
	app.Delete("/session", h.handleDeleteSession)
	app.Put("/password", h.handleChangePassword)

	app.Post("/vehicles", h.handleAddVehicle)
	app.Get("/vehicles", h.handleGetVehicles)
	app.Get("/vehicles/fee", h.handleGetVehiclesByFee)
	app.Get("/vehicles/expire", h.handleGetExpire)
	app.Get("/vehicles/route", h.handleGetRoute)
	app.Get("/vehicles/search", h.handleSearchVehicles)
	app.Put("/vehicles", h.handleUpdateVehicle)

	app.Post("/fees", h.handlePayFee)

	app.Get("/history", h.handleGetHistory)
	app.Delete("/history", h.handleUndoHistory)
}

// statusFor maps an error code to an HTTP status
func statusFor(err error) int {
	switch vehicledb.ErrorCode(err) {
	case vehicledb.ErrCodeUnauthorized:
		return fiber.StatusUnauthorized
	case vehicledb.ErrCodeValidation:
		return fiber.StatusBadRequest
	case vehicledb.ErrCodeConflict:
		return fiber.StatusConflict
	case vehicledb.ErrCodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusBadGateway
	}
}

func (h *Handler) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusBadGateway {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	return c.Status(status).JSON(fiber.Map{"message": err.Error()})
}

// token extracts the bearer token; missing tokens are unauthorized
// without a store round trip
func token(c fiber.Ctx) (string, error) {
	t := c.Get("Authorization")
	if t == "" {
		return "", vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "Unauthorized")
	}
	return t, nil
}

func (h *Handler) handleSignup(c fiber.Ctx) error {
	var user vehicledb.User
	if err := c.Bind().JSON(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "the body msg format is wrong"})
	}
	if err := h.data.CreateUser(c.Context(), user); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "new user is created"})
}

func (h *Handler) handleLogin(c fiber.Ctx) error {
	var user vehicledb.User
	if err := c.Bind().JSON(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "the body msg format is wrong"})
	}
	session, err := h.data.Authenticate(c.Context(), user)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"token": session.Token})
}

func (h *Handler) handleDeleteSession(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	username, err := h.data.RevokeSessions(c.Context(), t)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "All Sessions of the user " + username + " is deleted"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleChangePassword(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req changePasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "the body msg format is wrong"})
	}
	if err := h.data.ChangePassword(c.Context(), t, req.OldPassword, req.NewPassword); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "password is changed"})
}

func (h *Handler) handleAddVehicle(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	var vehicle vehicledb.Vehicle
	if err := c.Bind().JSON(&vehicle); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "the body msg format is wrong"})
	}
	if err := h.data.AddVehicle(c.Context(), t, vehicle); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "new car is added"})
}

func (h *Handler) handleGetVehicles(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	vehicles, err := h.data.ListVehicles(c.Context(), t)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(vehicles)
}

// dueFilter maps the wire-level days parameter onto a DueFilter:
// days=0 keeps its historical meaning of "overdue"
func dueFilter(days int) vehicledb.DueFilter {
	if days == 0 {
		return vehicledb.Overdue()
	}
	return vehicledb.DueWithin(days)
}

func (h *Handler) handleGetVehiclesByFee(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	feeType := c.Query("type")
	if feeType == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Fee type is not provided"})
	}
	days, err := strconv.Atoi(c.Query("days", "0"))
	if err != nil || days < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid days"})
	}
	vehicles, err := h.data.ListVehiclesByFee(c.Context(), t, vehicledb.ParseFeeType(feeType), dueFilter(days))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(vehicles)
}

func (h *Handler) handleGetExpire(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	vehicles, err := h.data.ListVehiclesByFee(c.Context(), t, vehicledb.ParseFeeType("expire"), vehicledb.Overdue())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(vehicles)
}

func (h *Handler) handleGetRoute(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	day := c.Query("days")
	if day == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Days is not provided"})
	}
	days, err := strconv.Atoi(day)
	if err != nil || days < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid days"})
	}
	vehicles, err := h.data.ListVehiclesByFee(c.Context(), t, vehicledb.FeeTypeRoute, dueFilter(days))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(vehicles)
}

func (h *Handler) handleSearchVehicles(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	plates, err := h.data.SearchVehicles(c.Context(), t, c.Query("q"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(plates)
}

func (h *Handler) handlePayFee(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	feeType := c.Query("type")
	if feeType == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Fee type is not provided"})
	}
	var update vehicledb.VehicleUpdate
	if err := c.Bind().JSON(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "the body msg format is wrong"})
	}
	if err := h.data.PayFee(c.Context(), t, vehicledb.ParseFeeType(feeType), update); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "the car " + feeType + " date is updated"})
}

func (h *Handler) handleUpdateVehicle(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	var update vehicledb.VehicleUpdate
	if err := c.Bind().JSON(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "the body msg format is wrong"})
	}
	if err := h.data.UpdateVehicle(c.Context(), t, update); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "the car is updated"})
}

func (h *Handler) handleGetHistory(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	days, err := strconv.Atoi(c.Query("days", strconv.Itoa(defaultHistoryDays)))
	if err != nil || days < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid days"})
	}
	history, err := h.data.ViewHistory(c.Context(), t, days)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(history)
}

func (h *Handler) handleUndoHistory(c fiber.Ctx) error {
	t, err := token(c)
	if err != nil {
		return h.fail(c, err)
	}
	var record vehicledb.TransactionHistory
	if err := c.Bind().JSON(&record); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "the body msg format is wrong"})
	}
	if err := h.data.UndoHistory(c.Context(), t, record); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "The transaction undo successfully!!"})
}
