package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/*** DTOs shared across handlers ***/

type QuestionDTO struct {
	ID         string            `json:"id"`
	Subject    string            `json:"subject"`
	Topic      string            `json:"topic,omitempty"`
	Difficulty string            `json:"difficulty"`
	Text       string            `json:"questionText"`
	Paragraph  *string           `json:"paragraph,omitempty"`
	Choices    map[string]string `json:"choices"`
}

func toQuestionDTO(q *Question) QuestionDTO {
	choices := map[string]string{}
	_ = json.Unmarshal([]byte(q.ChoicesRaw), &choices)
	// CorrectAnswer and Explanation stay server-side until answered.
	return QuestionDTO{
		ID:         q.ID,
		Subject:    q.Subject,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
		Text:       q.Text,
		Paragraph:  q.Paragraph,
		Choices:    choices,
	}
}

// respondErr maps sentinel errors to HTTP statuses. Persistence failures
// are logged in full and surfaced as a generic message only.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
	case errors.Is(err, ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
	case errors.Is(err, ErrInsufficientCurrency):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient currency"})
	case errors.Is(err, ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": "try again"})
	default:
		zap.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
	}
}

func sessionUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userDBID")
	if !ok {
		return 0, false
	}
	id, ok2 := v.(uint)
	return id, ok2
}

/*** Question delivery ***/

// GET /api/v1/questions/next?subject=math&topic=Algebra&difficulty=Easy
func NextQuestion(svc *PracticeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.Query("subject")
		if subject != "" && subject != "math" && subject != "english" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subject must be 'math' or 'english'"})
			return
		}
		q, err := svc.repo.GetRandomQuestion(c.Request.Context(), subject, c.Query("topic"), c.Query("difficulty"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"question": toQuestionDTO(q)})
	}
}

/*** Answer evaluation ***/

type SubmitAnswerReq struct {
	QuestionID string  `json:"questionId"`
	Answer     *string `json:"answer"`
	// Attempts is accepted for older clients that echo their local attempt
	// count, but it is never trusted: prior-attempt state is always
	// recomputed from the store.
	Attempts *int `json:"attempts"`
}

// POST /api/v1/questions/submit
func SubmitAnswer(svc *PracticeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		var req SubmitAnswerReq
		if err := c.BindJSON(&req); err != nil || req.QuestionID == "" || req.Answer == nil {
			// An empty answer string is a valid (wrong) submission; an
			// absent answer field is not.
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		res, err := svc.EvaluateAnswer(c.Request.Context(), uid, req.QuestionID, *req.Answer)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// GET /api/v1/questions/recent?limit=5
func RecentAttempts(svc *PracticeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		limit := 5
		if l := c.Query("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				if n > 50 {
					n = 50
				}
				limit = n
			}
		}
		attempts, err := svc.repo.GetRecentAttempts(c.Request.Context(), uid, limit)
		if err != nil {
			respondErr(c, err)
			return
		}

		type row struct {
			QuestionID    string    `json:"questionId"`
			Subject       string    `json:"subject"`
			Answer        string    `json:"answer"`
			IsCorrect     bool      `json:"isCorrect"`
			AttemptNumber int       `json:"attemptNumber"`
			AnsweredAt    time.Time `json:"answeredAt"`
		}
		items := make([]row, 0, len(attempts))
		for _, a := range attempts {
			items = append(items, row{
				QuestionID:    a.QuestionID,
				Subject:       a.Subject,
				Answer:        a.Answer,
				IsCorrect:     a.IsCorrect,
				AttemptNumber: a.AttemptNumber,
				AnsweredAt:    a.AnsweredAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"recentlyAnswered": items})
	}
}

/*** Holding-reward accrual ***/

// POST /api/v1/holdings/accrue
func AccrueHoldings(svc *PracticeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		total, err := svc.AccrueHoldings(c.Request.Context(), uid)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"totalAccrued": total.InexactFloat64()})
	}
}

/*** Leaderboard ***/

var validLeagues = map[string]bool{
	"Bronze": true, "Silver": true, "Gold": true, "Platinum": true,
}

// GET /api/v1/leaderboard?league=Gold
func Leaderboard(svc *PracticeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		league := c.Query("league")
		if league == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "league parameter is required"})
			return
		}
		if !validLeagues[league] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid league parameter"})
			return
		}
		entries, err := svc.repo.ListLeaderboard(c.Request.Context(), league)
		if err != nil {
			respondErr(c, err)
			return
		}

		type row struct {
			Username string `json:"username"`
			Score    int64  `json:"score"`
		}
		items := make([]row, 0, len(entries))
		for _, e := range entries {
			items = append(items, row{Username: e.Username, Score: e.Score})
		}
		c.JSON(http.StatusOK, gin.H{"league": league, "data": items})
	}
}
