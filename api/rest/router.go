package rest

import (
	"github.com/gin-gonic/gin"
)

// Handlers bundles the REST handlers mounted under /api.
type Handlers struct {
	Auth       *AuthHandler
	Characters *CharacterHandler
	Dungeons   *DungeonHandler
	Ranking    *RankingHandler
	Admin      *AdminHandler
}

// Mount registers every route on api. auth guards player routes; admin
// guards the operator group.
func Mount(api *gin.RouterGroup, h Handlers, auth gin.HandlerFunc, admin ...gin.HandlerFunc) {
	authG := api.Group("/auth")
	authG.POST("/register", h.Auth.Register)
	authG.POST("/login", h.Auth.Login)
	authG.POST("/logout", auth, h.Auth.Logout)
	authG.POST("/refresh", auth, h.Auth.Refresh)
	authG.GET("/me", auth, h.Auth.Me)

	charsG := api.Group("/characters", auth)
	h.Characters.Register(charsG)
	h.Dungeons.RegisterCharacterRoutes(charsG)

	h.Dungeons.Register(api.Group("/dungeons", auth))

	api.GET("/ranking", h.Ranking.Top)

	if h.Admin != nil {
		adminG := api.Group("/admin", admin...)
		h.Admin.Register(adminG)
		adminG.POST("/characters/:id/reward", h.Characters.Reward)
	}
}
