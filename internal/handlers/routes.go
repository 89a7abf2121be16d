package handlers

import (
	"github.com/gin-gonic/gin"

	"vmestego-backend/internal/auth"
)

func SetupRoutes(r *gin.Engine, h *Handler, tokens *auth.Tokens) {
	useJSONFieldNames()

	// Public Routes
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/events", auth.Optional(tokens), h.ListEvents)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(auth.Required(tokens))
	{
		// USERS
		authorized.GET("/users", h.ListUsers)
		authorized.GET("/users/search", h.SearchUsers)
		authorized.GET("/users/:id", h.GetUser)
		authorized.PUT("/users/:id", h.UpdateUser)
		authorized.DELETE("/users/:id", h.DeleteUser)
		authorized.GET("/users/:id/image-upload/url", h.ProfileImageUploadURL)
		authorized.POST("/users/:id/image-upload/confirm", h.ConfirmProfileImage)

		// EVENTS
		authorized.POST("/events", h.CreateEvent)
		authorized.GET("/events/categories", h.ListCategories)
		authorized.GET("/events/created-private", feed(h.Events.CreatedPrivate))
		authorized.GET("/events/joined-private", feed(h.Events.JoinedPrivate))
		authorized.GET("/events/created-public", feed(h.Events.CreatedPublic))
		authorized.GET("/events/other-admins-public", feed(h.Events.OtherAdminsPublic))
		authorized.GET("/events/friends", h.FriendsEvents)
		authorized.GET("/events/:id", h.GetEvent)
		authorized.PUT("/events/:id", h.UpdateEvent)
		authorized.DELETE("/events/:id", h.DeleteEvent)
		authorized.GET("/events/:id/friends", h.EventFriendStatuses)
		authorized.POST("/events/:id/status", h.ChangeEventStatus)

		// EVENT IMAGES
		authorized.GET("/events/:id/images-upload/url", h.EventImageUploadURL)
		authorized.POST("/events/:id/images-upload/confirm", h.ConfirmEventImage)
		authorized.DELETE("/events/images/:imageId", h.DeleteEventImage)

		// COMMENTS
		authorized.GET("/events/:id/comments", h.ListComments)
		authorized.POST("/events/:id/comments", h.PostComment)
		authorized.POST("/comments/:id/rating", h.RateComment)
		authorized.DELETE("/comments/:id", h.DeleteComment)

		// INVITATIONS
		authorized.POST("/events-invitations/invite", h.InviteToEvent)
		authorized.GET("/events-invitations/pending", h.PendingInvitations)
		authorized.GET("/events-invitations/sent", h.SentInvitations)
		authorized.POST("/events-invitations/:id/accept", h.AcceptInvitation)
		authorized.POST("/events-invitations/:id/reject", h.RejectInvitation)
		authorized.DELETE("/events-invitations/:id", h.RevokeInvitation)

		// FRIENDS
		authorized.GET("/friends", h.ListFriends)
		authorized.DELETE("/friends/:friendId", h.RemoveFriend)
		authorized.POST("/friends/requests", h.SendFriendRequest)
		authorized.GET("/friends/requests/pending", h.PendingFriendRequests)
		authorized.GET("/friends/requests/sent", h.SentFriendRequests)
		authorized.GET("/friends/requests/with/:userId", h.FriendRequestWith)
		authorized.POST("/friends/requests/:id/accept", h.AcceptFriendRequest)
		authorized.POST("/friends/requests/:id/reject", h.RejectFriendRequest)
		authorized.DELETE("/friends/requests/:id", h.RevokeFriendRequest)

		// NOTIFICATIONS
		authorized.GET("/notifications", h.ListNotifications)
		authorized.POST("/notifications/mark-all-read", h.MarkAllNotificationsRead)
		authorized.POST("/notifications/:id/read", h.MarkNotificationRead)
	}
}
