package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/zalo-accounts/internal/domain"
)

var ErrNoTargets = errors.New("no targets to send to")

// BulkSend queues one text message per target and returns as soon as the job
// is accepted. Progress is observable through Job and job events.
func (s *Service) BulkSend(ctx context.Context, cmd BulkSendCommand) (BulkSendResult, error) {
	if strings.TrimSpace(cmd.Text) == "" {
		return BulkSendResult{}, domain.ErrEmptyMessage
	}
	if _, err := s.accounts.GetByID(ctx, cmd.AccountID); err != nil {
		return BulkSendResult{}, fmt.Errorf("get account: %w", err)
	}

	targets := make([]string, 0, len(cmd.TargetIDs))
	for _, target := range cmd.TargetIDs {
		if sanitized := domain.SanitizeIdentifier(target); sanitized != "" {
			targets = append(targets, sanitized)
		}
	}
	if len(targets) == 0 {
		return BulkSendResult{}, ErrNoTargets
	}

	job := s.runner.NewJob(cmd.AccountID, domain.JobKindBulkSend, targets)
	job = s.runner.Submit(job, func(ctx context.Context, target string) error {
		_, err := s.SendMessage(ctx, SendMessageCommand{
			AccountID:   cmd.AccountID,
			RecipientID: target,
			ThreadType:  domain.ThreadTypeUser,
			Text:        cmd.Text,
		})
		return err
	})

	s.log.Info("bulk send accepted", "account_id", cmd.AccountID, "job_id", job.ID, "targets", len(targets))
	return BulkSendResult{JobID: job.ID, AcceptedCount: len(targets)}, nil
}

func (s *Service) BulkSendCampaign(ctx context.Context, accountID domain.AccountID, campaign domain.Campaign) (BulkSendResult, error) {
	result, err := s.BulkSend(ctx, BulkSendCommand{
		AccountID: accountID,
		TargetIDs: campaign.Targets,
		Text:      campaign.Message,
	})
	if err != nil {
		return BulkSendResult{}, fmt.Errorf("campaign %q: %w", campaign.Name, err)
	}
	return result, nil
}
