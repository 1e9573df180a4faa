package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"admin-core/internal/managers"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// CacheHdl is the interface for the cache passthrough endpoints, used by
// operators to inspect and seed cache entries.
type CacheHdl interface {
	GetCacheEntry(c *gin.Context)
	SetCacheEntry(c *gin.Context)
	DeleteCacheEntry(c *gin.Context)
}

// CacheHandler implements CacheHdl.
type CacheHandler struct {
	CacheManager managers.CacheMgr
}

func NewCacheHandler(cacheMgr managers.CacheMgr) CacheHdl {
	return &CacheHandler{CacheManager: cacheMgr}
}

// GetCacheEntry returns the value stored under a key.
func (handler *CacheHandler) GetCacheEntry(c *gin.Context) {
	key := c.Param(utils.CacheKeyKey)

	value, err := handler.CacheManager.Get(c, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			utils.WriteAndLogError(c, schemas.CacheKeyNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.CacheUnavailable, http.StatusServiceUnavailable, err)
		return
	}

	utils.WriteAndLogResponse(c, &schemas.CacheEntryDTO{Key: key, Value: value}, http.StatusOK)
}

// SetCacheEntry stores a value under a key with a TTL in seconds.
func (handler *CacheHandler) SetCacheEntry(c *gin.Context) {
	key := c.Param(utils.CacheKeyKey)
	setRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.SetCacheRequest)

	ttl := time.Duration(setRequest.TTL) * time.Second
	if err := handler.CacheManager.SetEx(c, key, setRequest.Value, ttl); err != nil {
		utils.WriteAndLogError(c, schemas.CacheUnavailable, http.StatusServiceUnavailable, err)
		return
	}

	entry := &schemas.CacheEntryDTO{Key: key, Value: setRequest.Value, TTL: setRequest.TTL}
	utils.WriteAndLogResponse(c, entry, http.StatusCreated)
}

// DeleteCacheEntry drops a key. Deleting an absent key succeeds.
func (handler *CacheHandler) DeleteCacheEntry(c *gin.Context) {
	key := c.Param(utils.CacheKeyKey)

	if err := handler.CacheManager.Delete(c, key); err != nil {
		utils.WriteAndLogError(c, schemas.CacheUnavailable, http.StatusServiceUnavailable, err)
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Cache entry deleted"}, http.StatusOK)
}
