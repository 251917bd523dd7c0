package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/gotemplate/errors"
	"github.com/kbukum/gotemplate/logger"
)

const dbKey = "gotemplate.db"

var errRollback = errors.New("response status requires rollback")

// Atomic gives every request a database handle. Reads get db bound to the
// request context. POST, PUT, PATCH and DELETE run inside a transaction
// that commits only when the handler answers below 400; the response is
// held back until the commit succeeds. When db is already a transaction
// (a test session) the request runs in a savepoint of it.
func Atomic(db *gorm.DB, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if !mutates(c.Request.Method) {
			c.Set(dbKey, db.WithContext(ctx))
			c.Next()
			return
		}

		orig := c.Writer
		bw := newBufferedWriter(orig)
		c.Writer = bw
		defer func() { c.Writer = orig }()

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			c.Set(dbKey, tx)
			c.Next()
			if bw.Status() >= http.StatusBadRequest {
				return errRollback
			}
			return nil
		})
		if err != nil && !errors.Is(err, errRollback) {
			log.WithContext(ctx).Error("Transaction commit failed", logger.Fields(
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				logger.FieldError, err.Error(),
			))
			bw.discard()
			c.Writer = orig
			appErr := apperrors.DatabaseError(fmt.Errorf("commit: %w", err))
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		bw.flush()
	}
}

// DB returns the database handle Atomic attached to the request.
func DB(c *gin.Context) *gorm.DB {
	return c.MustGet(dbKey).(*gorm.DB)
}

func mutates(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
