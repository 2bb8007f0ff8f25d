package artifact

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portartifact "github.com/alanyang/cloudtask/internal/port/artifact"
)

// Register mounts the artifact read endpoint. Artifacts are served without
// auth: ids are unguessable uuids and the diff/log text they carry is meant
// for browser review links.
func Register(rg *gin.RouterGroup, store portartifact.Store) {
	rg.GET("/:id", getArtifact(store))
}

func getArtifact(store portartifact.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		content, err := store.ReadText(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "artifact not found"})
			return
		}
		c.String(http.StatusOK, content)
	}
}
