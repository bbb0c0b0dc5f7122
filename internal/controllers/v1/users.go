package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketledger/backend/internal/httputil"
)

type UserCreate struct {
	Name  string `json:"name" example:"Jane Doe"`
	Email string `json:"email" example:"jane@example.com"`
}

type UserUpdate struct {
	Name  *string `json:"name" example:"Jane Doe"`
	Email *string `json:"email" example:"jane.doe@example.com"`
}

func (co Controller) RegisterUserRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", httputil.OptionsPost)
		r.POST("", co.CreateUser)
	}

	{
		r.OPTIONS("/:userId", co.requireUser, httputil.OptionsGetPatch)
		r.GET("/:userId", co.requireUser, co.GetUser)
		r.PATCH("/:userId", co.requireUser, co.UpdateUser)
	}
}

// @Summary		Create user
// @Description	Creates a user together with a set of starter categories
// @Tags			Users
// @Produce		json
// @Success		201		{object}	Response[models.User]
// @Failure		400		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			user	body		UserCreate	true	"User"
// @Router			/v1/users [post]
func (co Controller) CreateUser(c *gin.Context) {
	var in UserCreate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	user, err := co.users.Create(c.Request.Context(), in.Name, in.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusCreated, user, nil)
}

// @Summary		Get user
// @Description	Returns a specific user
// @Tags			Users
// @Produce		json
// @Success		200		{object}	Response[models.User]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string	true	"ID of the user"
// @Router			/v1/users/{userId} [get]
func (co Controller) GetUser(c *gin.Context) {
	user, err := co.users.Get(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusOK, user, nil)
}

// @Summary		Update user
// @Description	Updates a user. Only values to be updated need to be specified.
// @Tags			Users
// @Produce		json
// @Success		200		{object}	Response[models.User]
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			userId	path		string		true	"ID of the user"
// @Param			user	body		UserUpdate	true	"User"
// @Router			/v1/users/{userId} [patch]
func (co Controller) UpdateUser(c *gin.Context) {
	var in UserUpdate
	if err := httputil.BindData(c, &in); err != nil {
		writeError(c, err)
		return
	}

	user, err := co.users.Update(c.Request.Context(), userID(c), in.Name, in.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	respond(c, http.StatusOK, user, nil)
}
