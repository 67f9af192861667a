package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/api/responses"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	pkgerrors "github.com/matiasvr/folioscope-analytics/pkg/errors"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

type profileFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

type profileView struct {
	UserID              string    `json:"user_id"`
	ViewCount7d         int       `json:"view_count_7d"`
	TapCount7d          int       `json:"tap_count_7d"`
	PremiumViewCount7d  int       `json:"premium_view_count_7d"`
	CopyCountTotal      int       `json:"copy_count_total"`
	SubscribeCountTotal int       `json:"subscribe_count_total"`
	SessionCountTotal   int       `json:"session_count_total"`
	HasLinkedFunding    bool      `json:"has_linked_funding"`
	HasCopiedPortfolio  bool      `json:"has_copied_portfolio"`
	FirstSeenAt         time.Time `json:"first_seen_at"`
	LastEventAt         time.Time `json:"last_event_at"`
}

// GetProfile serves the merged behavioral profile for one user.
func GetProfile(repo profileFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		profile, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find profile"))
			return
		}

		responses.WriteSuccess(w, profileView{
			UserID:              profile.UserID.String(),
			ViewCount7d:         profile.ViewCount7d,
			TapCount7d:          profile.TapCount7d,
			PremiumViewCount7d:  profile.PremiumViewCount7d,
			CopyCountTotal:      profile.CopyCountTotal,
			SubscribeCountTotal: profile.SubscribeCountTotal,
			SessionCountTotal:   profile.SessionCountTotal,
			HasLinkedFunding:    profile.HasLinkedFunding,
			HasCopiedPortfolio:  profile.HasCopiedPortfolio,
			FirstSeenAt:         profile.FirstSeenAt,
			LastEventAt:         profile.LastEventAt,
		})
	}
}
