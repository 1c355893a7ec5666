package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cristopher-namchee/reserenv/internal/domain"
	"github.com/cristopher-namchee/reserenv/internal/models"
	"github.com/cristopher-namchee/reserenv/internal/repository"
	"github.com/cristopher-namchee/reserenv/internal/vocab"

	"github.com/rs/zerolog"
)

// ReservationService decides whether reserve, unreserve and status
// requests succeed and computes the resulting store mutations. All
// user-facing failures are answers (models.Response values), not errors;
// an error return means the store itself misbehaved.
type ReservationService struct {
	repo              domain.ReservationRepository
	vocab             *vocab.Vocabulary
	logger            *zerolog.Logger
	singleEnvironment bool
	now               func() time.Time
}

func NewReservationService(repo domain.ReservationRepository, v *vocab.Vocabulary, singleEnvironment bool, logger *zerolog.Logger) *ReservationService {
	return &ReservationService{
		repo:              repo,
		vocab:             v,
		logger:            logger,
		singleEnvironment: singleEnvironment,
		now:               time.Now,
	}
}

// target is a validated write-command destination: one environment and
// the service tokens to fan out over, in the order they were requested.
type target struct {
	environment string
	services    []string
	defaulted   bool
}

// Reserve handles the /reserve command.
func (s *ReservationService) Reserve(ctx context.Context, requester models.Requester, args []string) (models.Response, error) {
	tgt, early := s.resolveTarget("reserve", args)
	if early != nil {
		return early, nil
	}

	return s.fanout(ctx, tgt, func(ctx context.Context, key models.ResourceKey) models.ActionLine {
		return s.reserveOne(ctx, requester, key)
	}), nil
}

// Unreserve handles the /unreserve command.
func (s *ReservationService) Unreserve(ctx context.Context, requester models.Requester, args []string) (models.Response, error) {
	tgt, early := s.resolveTarget("unreserve", args)
	if early != nil {
		return early, nil
	}

	return s.fanout(ctx, tgt, func(ctx context.Context, key models.ResourceKey) models.ActionLine {
		return s.unreserveOne(ctx, requester, key)
	}), nil
}

// Status handles the /reservation command. With no arguments it reports
// every environment; otherwise only the (normalized) requested ones.
func (s *ReservationService) Status(ctx context.Context, requester models.Requester, args []string) (models.Response, error) {
	environments := s.vocab.Environments()
	if len(args) > 0 {
		environments = s.vocab.NormalizeEnvironments(args)
		if len(environments) == 0 {
			return models.HelpList{
				Intro:   "The specified environment(s) doesn't exist!",
				Heading: "Available environments:",
				Items:   s.vocab.Environments(),
			}, nil
		}
	}

	report := models.StatusReport{Environments: make([]models.EnvironmentStatus, 0, len(environments))}
	for _, env := range environments {
		status, err := s.environmentStatus(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("status of %s: %w", env, err)
		}
		report.Environments = append(report.Environments, status)
	}

	return report, nil
}

// environmentStatus fetches every service record under one environment.
// Lookups are independent, so they run concurrently and are re-associated
// with their service by index.
func (s *ReservationService) environmentStatus(ctx context.Context, env string) (models.EnvironmentStatus, error) {
	services := s.vocab.Services()
	if len(services) == 0 {
		// Coarse deployment: the environment itself is the resource.
		services = []string{""}
	}

	rows := make([]models.ServiceStatus, len(services))
	errs := make([]error, len(services))

	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc string) {
			defer wg.Done()
			record, err := s.repo.Get(ctx, models.ResourceKey{Environment: env, Service: svc})
			if err != nil {
				errs[i] = err
				return
			}
			rows[i] = models.ServiceStatus{
				Service: svc,
				Label:   s.vocab.ServiceLabel(svc),
				Icon:    s.vocab.ServiceIcon(svc),
				Record:  record,
			}
		}(i, svc)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return models.EnvironmentStatus{}, err
		}
	}

	return models.EnvironmentStatus{
		Name:     env,
		Aliases:  s.vocab.EnvironmentAliases(env),
		Services: rows,
	}, nil
}

// HolderReservations enumerates every held reservation grouped by holder,
// for the reminder sweep. Holders come back sorted by id; each holder's
// items follow canonical environment and service order.
func (s *ReservationService) HolderReservations(ctx context.Context) ([]models.HolderReservations, error) {
	reservations, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	sort.SliceStable(reservations, func(i, j int) bool {
		return s.canonicalLess(reservations[i].Key, reservations[j].Key)
	})

	grouped := make(map[string]*models.HolderReservations)
	for _, res := range reservations {
		holder, ok := grouped[res.Record.HolderID]
		if !ok {
			holder = &models.HolderReservations{
				HolderID:   res.Record.HolderID,
				HolderName: res.Record.HolderName,
				Channel:    res.Record.Channel,
			}
			grouped[res.Record.HolderID] = holder
		}
		holder.Items = append(holder.Items, res)
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.HolderReservations, 0, len(ids))
	for _, id := range ids {
		out = append(out, *grouped[id])
	}
	return out, nil
}

// resolveTarget applies the validation gates in order: missing argument,
// unknown environment, multi-environment policy, unknown services. A
// non-nil response short-circuits before any store access.
func (s *ReservationService) resolveTarget(verb string, args []string) (*target, models.Response) {
	if len(args) == 0 {
		return nil, models.HelpList{
			Intro:   fmt.Sprintf("You need to specify the environment you want to %s.", verb),
			Heading: "Available environments:",
			Items:   s.vocab.Environments(),
		}
	}

	if s.singleEnvironment {
		if requested := s.vocab.NormalizeEnvironments(args); len(requested) > 1 {
			return nil, models.PlainText{
				Text: fmt.Sprintf(
					"You can only %s one environment per command. Please %s `%s` one at a time.",
					verb, verb, strings.Join(requested, "`, `"),
				),
			}
		}
	}

	environments := s.vocab.NormalizeEnvironments(args[:1])
	if len(environments) == 0 {
		return nil, models.HelpList{
			Intro:   "The specified environment doesn't exist!",
			Heading: "Available environments:",
			Items:   s.vocab.Environments(),
		}
	}

	tgt := &target{environment: environments[0]}
	if !s.vocab.HasServices() {
		return tgt, nil
	}

	rawServices := make([]string, 0, len(args)-1)
	for _, raw := range args[1:] {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			rawServices = append(rawServices, trimmed)
		}
	}

	if len(rawServices) == 0 {
		tgt.services = s.vocab.Services()
		tgt.defaulted = true
		return tgt, nil
	}

	if len(s.vocab.NormalizeServices(rawServices)) == 0 {
		return nil, models.HelpList{
			Intro:   "The specified service(s) doesn't exist!",
			Heading: "Available services:",
			Items:   s.vocab.Services(),
		}
	}

	tgt.services = rawServices
	return tgt, nil
}

// fanout performs one independent operation per requested service and
// tallies the outcome. Service tokens are validated individually here so
// that one bogus token costs a failure line, not the whole request.
func (s *ReservationService) fanout(ctx context.Context, tgt *target, op func(context.Context, models.ResourceKey) models.ActionLine) models.Fanout {
	if tgt.services == nil {
		line := op(ctx, models.ResourceKey{Environment: tgt.environment})
		result := models.Fanout{Lines: []models.ActionLine{line}, Total: 1}
		if line.Success {
			result.Succeeded = 1
		}
		return result
	}

	result := models.Fanout{
		Lines: make([]models.ActionLine, 0, len(tgt.services)),
		Total: len(tgt.services),
	}

	for _, raw := range tgt.services {
		normalized := s.vocab.NormalizeServices([]string{raw})
		if len(normalized) == 0 {
			result.Lines = append(result.Lines, models.ActionLine{
				Success: false,
				Message: fmt.Sprintf("Service `%s` doesn't exist in environment `%s`", raw, tgt.environment),
			})
			continue
		}

		line := op(ctx, models.ResourceKey{Environment: tgt.environment, Service: normalized[0]})
		result.Lines = append(result.Lines, line)
		if line.Success {
			result.Succeeded++
		}
	}

	return result
}

func (s *ReservationService) reserveOne(ctx context.Context, requester models.Requester, key models.ResourceKey) models.ActionLine {
	record := &models.ReservationRecord{
		HolderID:    requester.ID,
		HolderName:  requester.Name,
		HolderEmail: requester.Email,
		ReservedAt:  s.now().UTC(),
		Channel:     requester.Channel,
	}

	err := s.repo.Put(ctx, key, record)
	switch {
	case err == nil:
		return models.ActionLine{
			Success: true,
			Message: fmt.Sprintf("%s successfully reserved.", capitalize(key.Label())),
		}

	case errors.Is(err, repository.ErrAlreadyReserved):
		holder, getErr := s.repo.Get(ctx, key)
		if getErr != nil || holder == nil {
			return models.ActionLine{
				Success: false,
				Message: fmt.Sprintf("%s is already reserved.", capitalize(key.Label())),
			}
		}
		if holder.HolderID == requester.ID {
			return models.ActionLine{
				Success: false,
				Message: fmt.Sprintf("You already have %s reserved since %s.", key.Label(), holder.ReservedAt.Format(models.DateFormat)),
			}
		}
		return models.ActionLine{
			Success: false,
			Message: fmt.Sprintf(
				"%s is still being reserved by %s since %s. Please ask them to unreserve it first.",
				capitalize(key.Label()), holder.DisplayName(), holder.ReservedAt.Format(models.DateFormat),
			),
		}

	default:
		s.logger.Error().Err(err).Str("key", key.String()).Msg("reserve failed")
		return models.ActionLine{
			Success: false,
			Message: fmt.Sprintf("Failed to reserve %s. Please try again later.", key.Label()),
		}
	}
}

func (s *ReservationService) unreserveOne(ctx context.Context, requester models.Requester, key models.ResourceKey) models.ActionLine {
	holder, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("unreserve lookup failed")
		return models.ActionLine{
			Success: false,
			Message: fmt.Sprintf("Failed to unreserve %s. Please try again later.", key.Label()),
		}
	}

	if holder == nil {
		return models.ActionLine{
			Success: false,
			Message: fmt.Sprintf("%s is not being reserved.", capitalize(key.Label())),
		}
	}

	// Authorization: only the holder may release. Identity is compared by
	// id; email and display name are presentation only.
	if holder.HolderID != requester.ID {
		return models.ActionLine{
			Success: false,
			Message: fmt.Sprintf("You cannot unreserve %s as it is being reserved by %s.", key.Label(), holder.DisplayName()),
		}
	}

	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("unreserve delete failed")
		return models.ActionLine{
			Success: false,
			Message: fmt.Sprintf("Failed to unreserve %s. Please try again later.", key.Label()),
		}
	}

	return models.ActionLine{
		Success: true,
		Message: fmt.Sprintf("%s has been successfully unreserved.", capitalize(key.Label())),
	}
}

func (s *ReservationService) canonicalLess(a, b models.ResourceKey) bool {
	ai, bi := indexOf(s.vocab.Environments(), a.Environment), indexOf(s.vocab.Environments(), b.Environment)
	if ai != bi {
		return ai < bi
	}
	as, bs := indexOf(s.vocab.Services(), a.Service), indexOf(s.vocab.Services(), b.Service)
	if as != bs {
		return as < bs
	}
	return a.String() < b.String()
}

func indexOf(list []string, name string) int {
	for i, item := range list {
		if item == name {
			return i
		}
	}
	// Unknown names (stale keys from an older vocabulary) sort last.
	return len(list)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
