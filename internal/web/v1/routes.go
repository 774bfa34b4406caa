package v1

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the user pages on r.
func RegisterRoutes(r gin.IRouter, h *UserHandler) {
	r.GET("/", h.ListPage)
	r.GET("/users/new", h.CreateForm)
	r.POST("/users", h.CreateUser)

	user := r.Group("/user/:id")
	{
		user.GET("", h.DetailPage)
		user.GET("/edit", h.EditForm)
		user.POST("/edit", h.UpdateUser)
		user.GET("/delete", h.DeleteForm)
		user.POST("/delete", h.DeleteUser)
	}
}
