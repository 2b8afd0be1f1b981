package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"genomic-report-server/internal/report"
	"genomic-report-server/internal/story"
	"genomic-report-server/internal/utils"
)

// StoryHandler generates patient stories from a report supplied by the client.
type StoryHandler struct {
	Logger *logrus.Logger
}

func NewStoryHandler(logger *logrus.Logger) *StoryHandler {
	return &StoryHandler{Logger: logger}
}

// GenerateStoryRequest represents the request body for generating a story.
type GenerateStoryRequest struct {
	Data     json.RawMessage `json:"data" validate:"required"`
	Language string          `json:"language" validate:"required,oneof=en ar"`
	Level    string          `json:"level" validate:"required,oneof=child adult"`
	Length   string          `json:"length" validate:"required,oneof=short standard"`
}

// GenerateStory handles POST /stories. Generation is pure, so no session is
// needed.
func (h *StoryHandler) GenerateStory(c *gin.Context) {
	var req GenerateStoryRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	data, err := report.Decode(req.Data)
	if err != nil {
		utils.BadRequest(c, "Invalid report data: "+err.Error())
		return
	}

	out := story.Generate(story.Config{
		Data:     data,
		Language: story.Language(req.Language),
		Level:    story.Level(req.Level),
		Length:   story.Length(req.Length),
	})
	h.Logger.WithFields(logrus.Fields{
		"language": req.Language,
		"level":    req.Level,
		"length":   req.Length,
	}).Debug("Story generated")

	utils.Success(c, "Story generated successfully", out)
}
