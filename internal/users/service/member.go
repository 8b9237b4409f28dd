package service

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tripdesk/pkg/auth"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/model"
	"tripdesk/pkg/sanitizer"
)

// AddMember saves a travel companion on the calling customer's profile.
func (s *userService) AddMember(ctx context.Context, actor auth.Session, member model.Member) (*model.Member, error) {
	if !actor.IsCustomer() {
		return nil, apperrors.Forbidden("Only customers can manage saved members")
	}

	member.ID = primitive.NewObjectID().Hex()
	member.Name = sanitizer.SanitizeName(member.Name)
	member.Email = sanitizer.SanitizeEmail(member.Email)

	if err := s.validator.ValidateMember(&member); err != nil {
		return nil, validationError("Member validation failed", err)
	}

	user, err := s.Get(ctx, actor, actor.UserID)
	if err != nil {
		return nil, err
	}

	if len(user.Members) >= model.MaxMembers {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Cannot save more than %d members", model.MaxMembers,
		))
	}
	for _, existing := range user.Members {
		if strings.EqualFold(existing.Name, member.Name) && existing.Age == member.Age {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"Member %q is already saved", member.Name,
			))
		}
	}

	if err := s.repo.PushMember(ctx, actor.UserID, member); err != nil {
		s.cfg.Log.Error("Failed to add member", "user_id", actor.UserID, "error", err)
		return nil, apperrors.Internal("Failed to save member", err)
	}

	s.cfg.Log.Info("Member saved", "user_id", actor.UserID, "member_id", member.ID)

	return &member, nil
}

func (s *userService) RemoveMember(ctx context.Context, actor auth.Session, memberID string) error {
	if !actor.IsCustomer() {
		return apperrors.Forbidden("Only customers can manage saved members")
	}

	user, err := s.Get(ctx, actor, actor.UserID)
	if err != nil {
		return err
	}
	if user.MemberByID(memberID) == nil {
		return apperrors.NotFoundWithID("Member", memberID)
	}

	if err := s.repo.PullMember(ctx, actor.UserID, memberID); err != nil {
		s.cfg.Log.Error("Failed to remove member",
			"user_id", actor.UserID,
			"member_id", memberID,
			"error", err,
		)
		return apperrors.Internal("Failed to remove member", err)
	}

	s.cfg.Log.Info("Member removed", "user_id", actor.UserID, "member_id", memberID)

	return nil
}
