package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const guestCartCookie = "cart_session"

// tolerant of int / int64 / float64 / string in the context
func getIntFromCtx(c *gin.Context, key string) (int, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

func currentUserID(c *gin.Context) (int, bool) {
	return getIntFromCtx(c, "user_id")
}

// guestSessionKey returns the anonymous cart key, issuing a cookie on first
// use.
func guestSessionKey(c *gin.Context) string {
	if key, err := c.Cookie(guestCartCookie); err == nil && key != "" {
		return key
	}
	key := uuid.NewString()
	c.SetCookie(guestCartCookie, key, 60*60*24*30, "/", "", false, true)
	return key
}

func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func limitOffset(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
