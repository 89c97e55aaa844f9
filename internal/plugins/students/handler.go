package students

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
	"github.com/keyxmakerx/studentrecords/internal/middleware"
	"github.com/keyxmakerx/studentrecords/internal/plugins/auth"
	"github.com/keyxmakerx/studentrecords/internal/templates/pages"
)

// MsgNoSessionUser is the 401 text when the guard ran but left no user id.
const MsgNoSessionUser = "Unauthorized: No session userId found"

// Handler serves the protected roster page.
type Handler struct {
	service StudentService
}

// NewHandler creates a new students handler.
func NewHandler(service StudentService) *Handler {
	return &Handler{service: service}
}

// Index renders the signed-in user's greeting and the full roster (GET /).
func (h *Handler) Index(c echo.Context) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return apperror.NewUnauthorized(MsgNoSessionUser)
	}

	ctx := c.Request().Context()

	profile, err := h.service.Profile(ctx, userID)
	if err != nil {
		return err
	}

	roster, err := h.service.Roster(ctx)
	if err != nil {
		return err
	}

	return middleware.Render(c, http.StatusOK, pages.IndexPage(pages.IndexData{
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Students:  rosterRows(roster),
	}))
}

// rosterRows flattens students into display rows.
func rosterRows(list []Student) []pages.RosterRow {
	rows := make([]pages.RosterRow, 0, len(list))
	for _, s := range list {
		row := pages.RosterRow{
			ID:        s.ID,
			Name:      s.FullName(),
			Sex:       s.Sex,
			Telephone: s.Telephone,
			Email:     s.Email,
			Status:    s.Status,
		}
		if s.DateOfBirth != nil {
			row.DateOfBirth = s.DateOfBirth.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows
}
