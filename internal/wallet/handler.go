package wallet

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/tronscope/tronscope/internal/tron"
)

// Client-facing error details. Internal error text is only logged.
const (
	DetailAddressNotFound = "Address not found"
	DetailBadAddress      = "Bad address"
	DetailBadRequest      = "Bad request"
	DetailInternal        = "Internal server error"
)

// Handler exposes lookup HTTP endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a lookup HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createRequest struct {
	Address string `json:"address" form:"address"`
}

type accountInfoView struct {
	Energy    int64           `json:"energy"`
	Bandwidth int64           `json:"bandwidth"`
	Balance   decimal.Decimal `json:"balance"`
}

type walletInfoView struct {
	Address      string          `json:"address"`
	RowCreatedAt string          `json:"row_created_at"`
	AccountInfo  accountInfoView `json:"account_info"`
}

// Create looks the address up on chain, stores the result and returns the
// freshly fetched values.
func (h *Handler) Create(c *fiber.Ctx) error {
	address := c.Query("address")
	if address == "" && len(c.Body()) > 0 {
		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, DetailBadRequest)
		}
		address = req.Address
	}

	rec, info, err := h.service.Lookup(c.UserContext(), address)
	if err != nil {
		return h.lookupError(address, err)
	}

	return c.Status(http.StatusOK).JSON(toView(rec.Address, rec.CreatedAt, info))
}

// List returns stored lookups, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "page must be an integer")
	}
	limit, err := queryInt(c, "limit", DefaultPageSize)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "limit must be an integer")
	}

	records, err := h.service.List(c.UserContext(), page, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidPage) {
			return fiber.NewError(http.StatusBadRequest, "page must be >= 1 and limit between 1 and 50")
		}
		h.logger.Error("list records", slog.Int("page", page), slog.Int("limit", limit), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, DetailInternal)
	}

	out := make([]walletInfoView, 0, len(records))
	for _, rec := range records {
		out = append(out, toView(rec.Address, rec.CreatedAt, rec.AccountInfo))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func (h *Handler) lookupError(address string, err error) error {
	var upstream *tron.UpstreamError
	switch {
	case errors.Is(err, ErrAddressRequired):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, tron.ErrAddressNotFound):
		return fiber.NewError(http.StatusBadRequest, DetailAddressNotFound)
	case errors.Is(err, tron.ErrBadAddress):
		return fiber.NewError(http.StatusBadRequest, DetailBadAddress)
	case errors.Is(err, ErrStore):
		h.logger.Error("store lookup", slog.String("address", address), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, DetailInternal)
	case errors.As(err, &upstream):
		h.logger.Warn("chain lookup", slog.String("address", address), slog.String("op", upstream.Op), slog.Any("error", upstream.Err))
		return fiber.NewError(http.StatusBadRequest, DetailBadRequest)
	default:
		h.logger.Warn("chain lookup", slog.String("address", address), slog.Any("error", err))
		return fiber.NewError(http.StatusBadRequest, DetailBadRequest)
	}
}

func toView(address string, createdAt time.Time, info AccountInfo) walletInfoView {
	return walletInfoView{
		Address:      address,
		RowCreatedAt: createdAt.Format(time.RFC3339Nano),
		AccountInfo: accountInfoView{
			Energy:    info.Energy,
			Bandwidth: info.Bandwidth,
			Balance:   info.Balance,
		},
	}
}

func queryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
