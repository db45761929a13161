package handlers

import (
	"net/http"

	"github.com/campusride/campusride-backend/internal/lifecycle"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type ReviewInput struct {
	Rating int                `json:"rating" binding:"required,min=1,max=5"`
	Text   string             `json:"text"`
	Tags   []models.ReviewTag `json:"tags" binding:"max=5,unique,dive,reviewtag"`
}

func (in ReviewInput) toService() services.ReviewInput {
	return services.ReviewInput{Rating: in.Rating, Text: in.Text, Tags: in.Tags}
}

// ReviewTags lists the tag vocabulary and the review limits.
func ReviewTags() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tags":        models.ReviewTagVocabulary,
			"maxTags":     lifecycle.MaxReviewTags,
			"maxText":     lifecycle.MaxReviewText,
			"editWindowH": int(lifecycle.ReviewEditWindow.Hours()),
		})
	}
}

func CreateReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var input ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		review, err := reviews.Create(c.Request.Context(), c.GetUint("userId"), tripID, input.toService())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

func ListTripReviews(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := paramID(c, "id")
		if !ok {
			return
		}

		list, err := reviews.ListForTrip(c.Request.Context(), tripID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func UpdateReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var input ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		review, err := reviews.Update(c.Request.Context(), c.GetUint("userId"), id, input.toService())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, review)
	}
}
