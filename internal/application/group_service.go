package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const (
	groupInfoBatchSize = 50

	joinCodePending       = 240
	joinCodeAlreadyMember = 178
)

func isGroupLink(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.Contains(ref, "zalo.me/")
}

// CollectGroupMembers returns every member of a group, addressed either by
// invite link (walked page by page) or by group id (single read).
func (s *Service) CollectGroupMembers(ctx context.Context, accountID domain.AccountID, groupRef string) (GroupMembers, error) {
	groupRef = strings.TrimSpace(groupRef)
	if groupRef == "" {
		return GroupMembers{}, fmt.Errorf("group reference: %w", domain.ErrInvalidIdentifier)
	}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return GroupMembers{}, fmt.Errorf("get account: %w", err)
	}

	var header domain.GroupInfo
	fetch := func(ctx context.Context, page int) (Page[domain.GroupMember], error) {
		if !isGroupLink(groupRef) {
			info, err := s.groupInfo(ctx, accountID, groupRef)
			if err != nil {
				return Page[domain.GroupMember]{}, err
			}
			header = info
			return Page[domain.GroupMember]{Items: info.Members, Total: info.TotalMember}, nil
		}

		var info domain.GroupInfo
		err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
			var err error
			info, err = session.GetGroupLinkPage(ctx, groupRef, page)
			return err
		})
		if err != nil {
			return Page[domain.GroupMember]{}, err
		}
		if page == 0 {
			header = info
		}
		return Page[domain.GroupMember]{Items: info.Members, HasMore: info.HasMore, Total: info.TotalMember}, nil
	}

	collection, err := Collect(ctx, s.collector, fetch, func(m domain.GroupMember) string { return m.UID })
	if err != nil {
		return GroupMembers{}, fmt.Errorf("collect group members: %w", err)
	}
	if header.GroupID == "" {
		return GroupMembers{}, fmt.Errorf("group %s: %w", groupRef, domain.ErrGroupNotFound)
	}

	members := collection.Items
	if members == nil {
		members = []domain.GroupMember{}
	}

	s.log.Info("group members collected",
		"account_id", accountID,
		"group_id", header.GroupID,
		"members", len(members),
		"total", collection.Total,
		"fetches", collection.Fetches,
		"stop_reason", collection.StopReason,
	)

	return GroupMembers{
		GroupID:     header.GroupID,
		Name:        header.Name,
		TotalMember: collection.Total,
		Members:     members,
		Partial:     collection.Partial,
	}, nil
}

func (s *Service) groupInfo(ctx context.Context, accountID domain.AccountID, groupID string) (domain.GroupInfo, error) {
	var infos []domain.GroupInfo
	err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
		var err error
		infos, err = session.GetGroupInfo(ctx, []string{groupID})
		return err
	})
	if err != nil {
		return domain.GroupInfo{}, fmt.Errorf("get group info: %w", err)
	}
	for _, info := range infos {
		if info.GroupID == groupID {
			return info, nil
		}
	}
	if len(infos) == 1 && infos[0].GroupID == "" {
		infos[0].GroupID = groupID
		return infos[0], nil
	}
	return domain.GroupInfo{}, fmt.Errorf("group %s: %w", groupID, domain.ErrGroupNotFound)
}

func (s *Service) ListGroups(ctx context.Context, accountID domain.AccountID) ([]domain.GroupSummary, error) {
	return cached(ctx, s, cacheKey("groups", accountID, "all"), func() ([]domain.GroupSummary, error) {
		var ids []string
		err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
			var err error
			ids, err = session.ListGroupIDs(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list group ids: %w", err)
		}

		groups := make([]domain.GroupSummary, 0, len(ids))
		for start := 0; start < len(ids); start += groupInfoBatchSize {
			batch := ids[start:min(start+groupInfoBatchSize, len(ids))]

			var infos []domain.GroupInfo
			err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
				var err error
				infos, err = session.GetGroupInfo(ctx, batch)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("get group info: %w", err)
			}

			for _, info := range infos {
				groups = append(groups, domain.GroupSummary{
					GroupID:      info.GroupID,
					Name:         info.Name,
					Avatar:       info.Avatar,
					TotalMembers: info.TotalMember,
					CreatorID:    info.CreatorID,
				})
			}
		}
		return groups, nil
	})
}

// JoinGroup joins a group by invite link. Groups that require approval and
// groups the account already belongs to are reported as statuses, not errors.
func (s *Service) JoinGroup(ctx context.Context, accountID domain.AccountID, link string) (JoinGroupResult, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return JoinGroupResult{}, fmt.Errorf("group link: %w", domain.ErrInvalidIdentifier)
	}

	err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
		return session.JoinGroupLink(ctx, link)
	})
	if err == nil {
		s.invalidate(ctx, cacheKey("groups", accountID, "all"))
		return JoinGroupResult{Status: domain.JoinStatusJoined}, nil
	}

	switch {
	case joinErrorMatches(err, joinCodePending, "waiting for approve"):
		return JoinGroupResult{Status: domain.JoinStatusPending}, nil
	case joinErrorMatches(err, joinCodeAlreadyMember, "already a member"):
		return JoinGroupResult{Status: domain.JoinStatusAlreadyMember}, nil
	default:
		return JoinGroupResult{}, fmt.Errorf("join group: %w", err)
	}
}

// joinErrorMatches only inspects errors the platform itself reported, never
// transport failures.
func joinErrorMatches(err error, code int, phrase string) bool {
	var upstreamErr *domain.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return false
	}
	if upstreamErr.Code == code {
		return true
	}
	return upstreamErr.Err != nil && strings.Contains(strings.ToLower(upstreamErr.Err.Error()), phrase)
}

// CreateGroup creates a group from phone numbers or user ids. Groups larger
// than the safe limit are created with two seed members, and the rest are
// added in chunks, one chunk per batch item.
func (s *Service) CreateGroup(ctx context.Context, cmd CreateGroupCommand) (CreateGroupResult, error) {
	if _, err := s.accounts.GetByID(ctx, cmd.AccountID); err != nil {
		return CreateGroupResult{}, fmt.Errorf("get account: %w", err)
	}

	memberIDs, failed := s.resolveMembers(ctx, cmd.AccountID, cmd.Identifiers)
	if len(memberIDs) == 0 {
		return CreateGroupResult{Failed: failed}, domain.ErrNoValidMembers
	}

	log := s.log.With("account_id", cmd.AccountID, "group_name", cmd.Name)
	result := CreateGroupResult{Failed: failed}

	if len(memberIDs) <= s.opts.GroupSafeLimit {
		groupID, err := s.createGroup(ctx, cmd.AccountID, cmd.Name, memberIDs)
		if err != nil {
			return CreateGroupResult{}, err
		}
		log.Info("group created", "group_id", groupID, "members", len(memberIDs), "failed", len(failed))
		result.GroupID = groupID
		return result, nil
	}

	seed, rest := memberIDs[:groupSeedSize], memberIDs[groupSeedSize:]
	groupID, err := s.createGroup(ctx, cmd.AccountID, cmd.Name, seed)
	if err != nil {
		return CreateGroupResult{}, err
	}
	log.Info("group created with seed members, adding the rest in chunks",
		"group_id", groupID,
		"remaining", len(rest),
		"chunk_size", s.opts.GroupChunkSize,
	)

	// Once the group exists the additions outlive the caller's context.
	runCtx := context.WithoutCancel(ctx)
	chunks := chunkTargets(rest, s.opts.GroupChunkSize)
	job := s.runner.NewJob(cmd.AccountID, domain.JobKindGroupAddMembers, chunks)
	job = s.runner.Run(runCtx, job, func(ctx context.Context, chunk string) error {
		return s.withSession(ctx, cmd.AccountID, func(session ports.UpstreamSession) error {
			return session.AddUsersToGroup(ctx, groupID, strings.Split(chunk, ","))
		})
	})

	s.invalidate(runCtx, cacheKey("groups", cmd.AccountID, "all"))
	result.GroupID = groupID
	result.Chunks = &job
	return result, nil
}

func (s *Service) createGroup(ctx context.Context, accountID domain.AccountID, name string, memberIDs []string) (string, error) {
	var groupID string
	err := s.withSession(ctx, accountID, func(session ports.UpstreamSession) error {
		var err error
		groupID, err = session.CreateGroup(ctx, name, memberIDs)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}
	if groupID == "" {
		return "", fmt.Errorf("create group returned no id: %w", domain.ErrMalformedResponse)
	}
	return groupID, nil
}

// resolveMembers turns identifiers into unique user ids, in input order.
// Identifiers that cannot be resolved are reported instead of aborting.
func (s *Service) resolveMembers(ctx context.Context, accountID domain.AccountID, identifiers []string) ([]string, []domain.FailedIdentifier) {
	seen := map[string]struct{}{}
	memberIDs := make([]string, 0, len(identifiers))
	failed := []domain.FailedIdentifier{}

	for _, identifier := range identifiers {
		sanitized := domain.SanitizeIdentifier(identifier)
		if sanitized == "" {
			continue
		}

		userID := sanitized
		if domain.IsPhoneIdentifier(sanitized) {
			user, err := s.FindUserByIdentifier(ctx, accountID, sanitized)
			if err != nil {
				reason := err.Error()
				if errors.Is(err, domain.ErrUserNotFound) {
					reason = domain.ErrUserNotFound.Error()
				}
				failed = append(failed, domain.FailedIdentifier{Identifier: identifier, Reason: reason})
				continue
			}
			userID = user.UserID
		}

		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		memberIDs = append(memberIDs, userID)
	}

	return memberIDs, failed
}

func chunkTargets(ids []string, size int) []string {
	chunks := make([]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		chunks = append(chunks, strings.Join(ids[start:min(start+size, len(ids))], ","))
	}
	return chunks
}
