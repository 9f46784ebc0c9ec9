package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"tastyclub/internal/datastore"
	"tastyclub/internal/models"
	"tastyclub/internal/pkg/caching"
	"tastyclub/internal/pkg/codegen"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceReferral struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceIssuance *ServiceIssuance
	rules           *Rules
}

func NewServiceReferral(container *do.Injector) (*ServiceReferral, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceIssuance, err := do.Invoke[*ServiceIssuance](container)
	if err != nil {
		return nil, err
	}

	rules, err := do.Invoke[*Rules](container)
	if err != nil {
		return nil, err
	}

	return &ServiceReferral{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, serviceIssuance, rules}, nil
}

// GetOrCreateInviteCode lazily creates the user's default invite code on
// first access; the (user, scope) unique index settles concurrent creators.
func (service *ServiceReferral) GetOrCreateInviteCode(ctx context.Context, userID int64) (*models.InviteCode, error) {
	callback := func() (*models.InviteCode, error) {
		return datastore.GetInviteCodeByScope(ctx, service.readonlyPostgresDB, userID, nil)
	}

	invite, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyInviteCode(userID), CACHE_TTL_1_HOUR, callback)
	if err == nil {
		return invite, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	// retry on code collision: the refetch only finds a row when the same
	// user won the scope index, not when another user holds the code
	for attempt := 0; attempt < 3; attempt++ {
		invite, _, err := datastore.InsertInviteCodeIdempotent(ctx, service.postgresDB, &models.InviteCode{
			UserID:    userID,
			Code:      codegen.InviteCode(),
			CreatedAt: time.Now(),
		})
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		return invite, nil
	}

	return nil, errorx.Wrap(errors.New("invite code generation exhausted"), errorx.Service)
}

// CreateEventInviteCode hands an operational account a campaign-scoped code
// whose referrals redirect the referee reward.
func (service *ServiceReferral) CreateEventInviteCode(ctx context.Context, userID int64, campaignCode string) (*models.InviteCode, error) {
	if !service.rules.IsOperationalAccount(userID) {
		return nil, errorx.Wrap(ErrInvalidInviteCode, errorx.Validation)
	}

	invite, _, err := datastore.InsertInviteCodeIdempotent(ctx, service.postgresDB, &models.InviteCode{
		UserID:       userID,
		Code:         codegen.InviteCode(),
		CampaignCode: &campaignCode,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return invite, nil
}

// AcceptReferral records that the referee joined through a code. Referrals
// enter PENDING; the final-exam event code short-circuits the graph and
// grants immediately.
func (service *ServiceReferral) AcceptReferral(ctx context.Context, refereeID int64, refCode string) (*models.Referral, error) {
	refCode = strings.TrimSpace(refCode)
	if refCode == "" {
		return nil, errorx.Wrap(ErrInvalidInviteCode, errorx.Validation)
	}
	if service.rules.IsBlockedCode(refCode) {
		return nil, errorx.Wrap(ErrBlockedInviteCode, errorx.Validation)
	}

	if strings.EqualFold(refCode, service.rules.FinalExamCode) {
		return service.acceptFinalExam(ctx, refereeID, refCode)
	}

	invite, err := datastore.GetInviteCodeByCode(ctx, service.readonlyPostgresDB, refCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrInvalidInviteCode, errorx.Validation)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if invite.UserID == refereeID {
		return nil, errorx.Wrap(ErrSelfReferral, errorx.Validation)
	}

	existing, err := datastore.GetReferralByScope(ctx, service.postgresDB, refereeID, invite.CampaignCode)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if existing != nil {
		healed, err := service.healStaleReferral(ctx, existing)
		if err != nil {
			return nil, err
		}
		if !healed {
			return nil, errorx.Wrap(ErrAlreadyAccepted, errorx.Validation)
		}
	}

	// the cap binds default-scope referrals of ordinary referrers only
	if invite.CampaignCode == nil && !service.rules.IsOperationalAccount(invite.UserID) {
		active, err := datastore.CountActiveDefaultReferralsByReferrer(ctx, service.postgresDB, invite.UserID)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		if active >= service.rules.ReferralLimit {
			return nil, errorx.Wrap(ErrReferralLimit, errorx.Validation)
		}
	}

	referral, created, err := datastore.InsertReferralIdempotent(ctx, service.postgresDB, &models.Referral{
		ReferrerID:   invite.UserID,
		RefereeID:    refereeID,
		CodeUsed:     refCode,
		CampaignCode: invite.CampaignCode,
		Status:       models.ReferralStatusPending,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if !created {
		return nil, errorx.Wrap(ErrAlreadyAccepted, errorx.Validation)
	}

	log.Println("referral accepted", "referrer:", invite.UserID, "referee:", refereeID, "code:", refCode)
	return referral, nil
}

// acceptFinalExam bypasses the graph: a self-referential QUALIFIED row plus
// the bulk multi-restaurant grant, guarded by the coupons themselves.
func (service *ServiceReferral) acceptFinalExam(ctx context.Context, refereeID int64, refCode string) (*models.Referral, error) {
	campaign := service.rules.FinalExamCampaign

	existing, err := datastore.GetReferralByScope(ctx, service.postgresDB, refereeID, &campaign)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if existing != nil {
		issued, err := datastore.CountUserCouponsByCampaign(ctx, service.postgresDB, refereeID, campaign)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		if issued > 0 {
			return nil, errorx.Wrap(ErrAlreadyAccepted, errorx.Validation)
		}
		// coupons were removed out-of-band; drop the stale row and re-grant
		if err := datastore.DeleteReferral(ctx, service.postgresDB, existing.ID); err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
	}

	if _, err := service.serviceIssuance.IssueFinalExamCoupons(ctx, refereeID); err != nil {
		return nil, err
	}

	now := time.Now()
	referral, _, err := datastore.InsertReferralIdempotent(ctx, service.postgresDB, &models.Referral{
		ReferrerID:   refereeID,
		RefereeID:    refereeID,
		CodeUsed:     refCode,
		CampaignCode: &campaign,
		Status:       models.ReferralStatusQualified,
		QualifiedAt:  &now,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return referral, nil
}

// healStaleReferral deletes a QUALIFIED row whose reward coupons were
// removed out-of-band, so the referee can re-accept. PENDING rows are left
// alone: their rewards are only due at qualification.
func (service *ServiceReferral) healStaleReferral(ctx context.Context, referral *models.Referral) (bool, error) {
	if referral.Status != models.ReferralStatusQualified {
		return false, nil
	}

	if referral.CampaignCode != nil && *referral.CampaignCode == service.rules.FinalExamCampaign {
		issued, err := datastore.CountUserCouponsByCampaign(ctx, service.postgresDB, referral.RefereeID, *referral.CampaignCode)
		if err != nil {
			return false, errorx.Wrap(err, errorx.Service)
		}
		if issued > 0 {
			return false, nil
		}
	} else {
		couponType, campaignCode, issueKey := refereeRewardScope(referral, service.rules)
		_, err := datastore.GetCouponByIssueKey(ctx, service.postgresDB, referral.RefereeID, couponType, campaignCode, issueKey)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return false, errorx.Wrap(err, errorx.Service)
		}
	}

	if err := datastore.DeleteReferral(ctx, service.postgresDB, referral.ID); err != nil {
		return false, errorx.Wrap(err, errorx.Service)
	}
	log.Println("healed stale referral", "referee:", referral.RefereeID, "id:", referral.ID)
	return true, nil
}

// refereeRewardScope is the exact (type, campaign, key) scope the
// qualification grant writes the referee reward under. The stale-row check
// queries this same scope; anything else would miss live coupons and delete
// healthy referrals. Default-scope rewards carry the referral campaign, not
// a nil campaign.
func refereeRewardScope(referral *models.Referral, rules *Rules) (couponType string, campaignCode *string, issueKey string) {
	if referral.CampaignCode != nil {
		return rules.RewardTypeForCampaign(*referral.CampaignCode), referral.CampaignCode, IssueKeyReferralCampaign(*referral.CampaignCode, referral.RefereeID)
	}
	return rules.RefereeRewardType, &rules.ReferralCampaign, IssueKeyReferralReferee(referral.RefereeID)
}

// QualifyAndGrant moves the referee's PENDING referrals to QUALIFIED and
// fans out the rewards. Grants land before the status flip: a failed grant
// leaves the row PENDING, so the next run picks it up again, and the
// issuance dedup guard makes the re-grant a no-op for anything that did
// land.
func (service *ServiceReferral) QualifyAndGrant(ctx context.Context, refereeID int64) (*models.Referral, error) {
	pendings, err := datastore.ListPendingReferralsByReferee(ctx, service.postgresDB, refereeID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if len(pendings) == 0 {
		return nil, nil
	}

	var last *models.Referral
	for _, referral := range pendings {
		if err := service.grantRewards(ctx, referral); err != nil {
			return nil, err
		}

		now := time.Now()
		referral.Status = models.ReferralStatusQualified
		referral.QualifiedAt = &now
		if err := datastore.UpdateReferralStatus(ctx, service.postgresDB, referral); err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		last = referral
	}

	log.Println("referrals qualified", "referee:", refereeID, "count:", len(pendings))
	return last, nil
}

// grantRewards runs while the row is still PENDING, so qualified counts
// exclude the referral being granted.
func (service *ServiceReferral) grantRewards(ctx context.Context, referral *models.Referral) error {
	// event scope: ensure the bulk grant exists
	if referral.CampaignCode != nil && *referral.CampaignCode == service.rules.FinalExamCampaign {
		_, err := service.serviceIssuance.IssueFinalExamCoupons(ctx, referral.RefereeID)
		return err
	}

	couponType, campaignCode, issueKey := refereeRewardScope(referral, service.rules)
	_, _, err := service.serviceIssuance.Issue(ctx, IssueParams{
		UserID:       referral.RefereeID,
		CouponType:   couponType,
		CampaignCode: campaignCode,
		IssueKey:     issueKey,
	})
	if err != nil {
		return err
	}

	// operational campaign scope: referee only
	if referral.CampaignCode != nil {
		return nil
	}

	// standard scope: the referrer earns only while under the cap
	qualified, err := datastore.CountQualifiedDefaultReferralsByReferrer(ctx, service.postgresDB, referral.ReferrerID)
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	if !referrerUnderCap(qualified, service.rules.ReferralLimit) {
		log.Println("referrer over cap at qualification, skipping reward", "referrer:", referral.ReferrerID)
		return nil
	}

	campaign := service.rules.ReferralCampaign
	_, _, err = service.serviceIssuance.Issue(ctx, IssueParams{
		UserID:       referral.ReferrerID,
		CouponType:   service.rules.ReferrerRewardType,
		CampaignCode: &campaign,
		IssueKey:     IssueKeyReferralReferrer(referral.ReferrerID, referral.RefereeID),
	})
	return err
}

// referrerUnderCap reports whether one more qualified referral still earns
// the referrer a reward, given their qualified count before this
// qualification lands.
func referrerUnderCap(qualifiedBefore, limit int) bool {
	return qualifiedBefore < limit
}
