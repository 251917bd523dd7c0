package music

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/gotemplate/database/query"
	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/server"
	"github.com/kbukum/gotemplate/server/middleware"
	"github.com/kbukum/gotemplate/validation"
)

// Handler serves the music API. It expects middleware.Atomic in the chain;
// every request builds its Service on the handle Atomic attached.
type Handler struct {
	log *logger.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(log *logger.Logger) *Handler {
	return &Handler{log: log}
}

// Register mounts the routes on rg, normally the /api/music group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	bands := rg.Group("/bands")
	bands.POST("", h.createBand)
	bands.GET("", h.listBands)
	bands.GET("/:id", h.getBand)
	bands.PATCH("/:id", h.updateBand)
	bands.DELETE("/:id", h.deleteBand)

	musicians := rg.Group("/musicians")
	musicians.POST("", h.createMusician)
	musicians.GET("", h.listMusicians)
	musicians.GET("/:id", h.getMusician)
	musicians.PATCH("/:id", h.updateMusician)
	musicians.DELETE("/:id", h.deleteMusician)

	rg.POST("/memberships", h.createMembership)
}

func (h *Handler) service(c *gin.Context) *Service {
	return NewService(middleware.DB(c), h.log.WithContext(c.Request.Context()))
}

// bind decodes and validates the JSON body into req, answering 400 itself
// on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		server.RespondWithError(c, validation.FromError(err))
		return false
	}
	return true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return 0, false
	}
	return id, true
}

func params(c *gin.Context, cfg query.Config) (query.Params, bool) {
	p, err := query.Parse(c.Request.URL.Query(), cfg)
	if err != nil {
		server.RespondWithError(c, err)
		return query.Params{}, false
	}
	return p, true
}

func (h *Handler) createBand(c *gin.Context) {
	var req CreateBandRequest
	if !bind(c, &req) {
		return
	}
	band, err := h.service(c).CreateBand(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, band)
}

func (h *Handler) listBands(c *gin.Context) {
	p, ok := params(c, BandsQuery)
	if !ok {
		return
	}
	bands, err := h.service(c).ListBands(c.Request.Context(), p)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, bands)
}

func (h *Handler) getBand(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	band, err := h.service(c).GetBand(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, band)
}

func (h *Handler) updateBand(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateBandRequest
	if !bind(c, &req) {
		return
	}
	band, err := h.service(c).UpdateBand(c.Request.Context(), id, req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, band)
}

func (h *Handler) deleteBand(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service(c).DeleteBand(c.Request.Context(), id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondMessage(c, "Band deleted successfully")
}

func (h *Handler) createMusician(c *gin.Context) {
	var req CreateMusicianRequest
	if !bind(c, &req) {
		return
	}
	musician, err := h.service(c).CreateMusician(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, musician)
}

func (h *Handler) listMusicians(c *gin.Context) {
	p, ok := params(c, MusiciansQuery)
	if !ok {
		return
	}
	musicians, err := h.service(c).ListMusicians(c.Request.Context(), p)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, musicians)
}

func (h *Handler) getMusician(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	musician, err := h.service(c).GetMusician(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, musician)
}

func (h *Handler) updateMusician(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateMusicianRequest
	if !bind(c, &req) {
		return
	}
	musician, err := h.service(c).UpdateMusician(c.Request.Context(), id, req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, musician)
}

func (h *Handler) deleteMusician(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service(c).DeleteMusician(c.Request.Context(), id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondMessage(c, "Musician deleted successfully")
}

func (h *Handler) createMembership(c *gin.Context) {
	var req CreateMembershipRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.service(c).CreateMembership(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, m)
}
