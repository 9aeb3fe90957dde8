package handler // handler defines http handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getAccountID extracts the account_id stored by the JWT middleware
// and converts it to uint64. JWT numeric claims decode as float64,
// but the switch tolerates the other numeric shapes the claim may take
// after a round trip through different token producers.
func getAccountID(c echo.Context) (uint64, error) {
	v := c.Get("account_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid account_id in context")
}
