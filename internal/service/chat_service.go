package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/internal/repository/unitofwork"
	"ai-agent-be/pkg/events"
	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/llm/router"
	"ai-agent-be/pkg/metrics"
	"ai-agent-be/pkg/rag/prompt"
	"ai-agent-be/pkg/rag/retriever"
	"ai-agent-be/pkg/rag/stream"
	"ai-agent-be/pkg/rule"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline states. A run moves forward only.
const (
	StateReceived   = "RECEIVED"
	StateChecking   = "CHECKING"
	StateBlocked    = "BLOCKED"
	StateRetrieving = "RETRIEVING"
	StateAssembling = "ASSEMBLING"
	StateStreaming  = "STREAMING"
	StateCompleted  = "COMPLETED"
	StateFailed     = "FAILED"
	StateCancelled  = "CANCELLED"
)

const (
	kindAnswer = "answer"
	kindTitle  = "title"
)

// usagePublishTimeout bounds how long a single usage event may take to reach
// the event bus.
const usagePublishTimeout = 5 * time.Second

type IChatService interface {
	GenerateAnswer(ctx context.Context, req *entity.ChatRequest) (<-chan string, error)
	GenerateTitle(ctx context.Context, req *entity.ChatRequest) (<-chan string, error)
}

type ChatOptions struct {
	AnswerRules  []string
	TitleRules   []string
	TitleModel   string
	InitialQuota int
	// AllowedModels seeds the allow-list of newly opened accounts.
	AllowedModels []string
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	rules      *rule.Registry
	router     *router.Router
	retriever  *retriever.Retriever
	responder  *stream.Responder
	publisher  events.Publisher
	logger     logger.ILogger
	tracer     trace.Tracer
	opts       ChatOptions
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	rules *rule.Registry,
	modelRouter *router.Router,
	contextRetriever *retriever.Retriever,
	responder *stream.Responder,
	publisher events.Publisher,
	log logger.ILogger,
	opts ChatOptions,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		rules:      rules,
		router:     modelRouter,
		retriever:  contextRetriever,
		responder:  responder,
		publisher:  publisher,
		logger:     log,
		tracer:     otel.Tracer("chat-pipeline"),
		opts:       opts,
	}
}

// GenerateAnswer runs the rule chain, retrieves context for the request's tag
// and streams the grounded answer. A returned error is an internal fault; every
// other outcome, blocks included, arrives as stream items.
func (s *chatService) GenerateAnswer(ctx context.Context, req *entity.ChatRequest) (<-chan string, error) {
	return s.run(ctx, kindAnswer, req)
}

// GenerateTitle streams a short title for the conversation from the title
// model. It never retrieves context.
func (s *chatService) GenerateTitle(ctx context.Context, req *entity.ChatRequest) (<-chan string, error) {
	return s.run(ctx, kindTitle, req)
}

type pipelineRun struct {
	id        string
	kind      string
	req       *entity.ChatRequest
	state     string
	started   time.Time
	span      trace.Span
	requested string
	resolved  string
	fallback  bool
}

func (s *chatService) run(ctx context.Context, kind string, req *entity.ChatRequest) (<-chan string, error) {
	ctx, span := s.tracer.Start(ctx, "chat."+kind, trace.WithAttributes(
		attribute.String("chat.subject", req.SubjectId),
		attribute.String("chat.model", req.Model),
		attribute.String("chat.context_tag", req.ContextTag),
	))
	r := &pipelineRun{
		id:        uuid.NewString(),
		kind:      kind,
		req:       req,
		state:     StateReceived,
		started:   time.Now(),
		span:      span,
		requested: req.Model,
	}

	chain := s.opts.AnswerRules
	if kind == kindTitle {
		chain = s.opts.TitleRules
		r.requested = s.opts.TitleModel
	}

	r.transition(StateChecking)
	var account *entity.Account
	if s.rules.NeedsAccount(chain...) {
		acc, err := s.loadAccount(ctx, req.SubjectId)
		if err != nil {
			s.fault(r, err)
			return nil, err
		}
		account = acc
	}

	outcome, err := s.rules.Evaluate(ctx, req, account, chain...)
	if err != nil {
		s.fault(r, err)
		return nil, err
	}
	if outcome.IsBlocked() {
		metrics.RuleBlockedTotal.WithLabelValues(outcome.Code).Inc()
		s.logger.Info("CHAT", "Request blocked", map[string]interface{}{
			"run_id":  r.id,
			"subject": req.SubjectId,
			"code":    outcome.Code,
		})
		s.finish(r, StateBlocked, 1, outcome.Code, nil)
		return singleItem(outcome.String()), nil
	}

	binding, fallback := s.router.ResolveWithFallback(r.requested)
	r.resolved, r.fallback = binding.Name, fallback
	span.SetAttributes(attribute.String("chat.binding", binding.Name), attribute.Bool("chat.fallback", fallback))

	var messages []llm.Message
	if kind == kindAnswer {
		r.transition(StateRetrieving)
		grounding, err := s.retriever.Retrieve(ctx, req.Messages, retriever.Filter{SubjectId: req.SubjectId, Tag: req.ContextTag})
		if err != nil {
			s.logger.Warn("CHAT", "Context retrieval failed", map[string]interface{}{
				"run_id": r.id,
				"tag":    req.ContextTag,
				"error":  err.Error(),
			})
			metrics.StreamOutcomeTotal.WithLabelValues("error").Inc()
			s.finish(r, StateFailed, 1, "", err)
			return singleItem(stream.ErrorItem(err)), nil
		}
		span.SetAttributes(attribute.Int("chat.fragments", len(grounding.Fragments)))
		r.transition(StateAssembling)
		messages = prompt.AnswerPrompt(req.Messages, grounding)
	} else {
		r.transition(StateAssembling)
		messages = prompt.TitlePrompt(req.Messages)
	}

	r.transition(StateStreaming)
	return s.responder.Stream(ctx, binding, messages, func(sum stream.Summary) {
		items := sum.Forwarded
		outcome, state := "completed", StateCompleted
		switch {
		case sum.Cancelled:
			outcome, state = "cancelled", StateCancelled
		case sum.Err != nil:
			outcome, state = "error", StateFailed
			items++
		case sum.Placeholder:
			outcome = "placeholder"
			items++
		}
		metrics.StreamOutcomeTotal.WithLabelValues(outcome).Inc()
		s.finish(r, state, items, "", sum.Err)
	}), nil
}

func (s *chatService) loadAccount(ctx context.Context, subjectId string) (*entity.Account, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).AccountRepository()
	account, err := repo.FindOrCreate(ctx, newAccount(subjectId, s.opts.InitialQuota, s.opts.AllowedModels))
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", subjectId, err)
	}
	return account, nil
}

func (r *pipelineRun) transition(state string) {
	r.state = state
	r.span.AddEvent(state)
}

func (s *chatService) fault(r *pipelineRun, err error) {
	details := map[string]interface{}{
		"run_id":  r.id,
		"kind":    r.kind,
		"subject": r.req.SubjectId,
		"state":   r.state,
		"error":   err.Error(),
	}
	var fault *rule.FaultError
	if errors.As(err, &fault) {
		details["rule"] = fault.Code
	}
	s.logger.Error("CHAT", "Pipeline fault", details)
	s.finish(r, StateFailed, 0, "", err)
}

// finish ends the span and publishes the usage event. It runs once per run,
// on the stream's path, so the publish itself happens in the background.
func (s *chatService) finish(r *pipelineRun, state string, items int, blockCode string, err error) {
	r.state = state
	elapsed := time.Since(r.started)
	metrics.StreamDuration.WithLabelValues(r.kind).Observe(elapsed.Seconds())

	usage := dto.UsageEventMessage{
		RunId:      r.id,
		Kind:       r.kind,
		SubjectId:  r.req.SubjectId,
		Requested:  r.requested,
		Resolved:   r.resolved,
		Fallback:   r.fallback,
		FinalState: state,
		BlockCode:  blockCode,
		Items:      items,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		usage.Error = err.Error()
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.span.SetAttributes(attribute.String("chat.final_state", state), attribute.Int("chat.items", items))
	r.span.End()

	if s.publisher == nil {
		return
	}
	event := events.NewChatCompleted(usage.Payload())
	go s.publishUsage(r.id, event)
}

func (s *chatService) publishUsage(runId string, event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), usagePublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("CHAT", "Failed to publish usage event", map[string]interface{}{
			"run_id": runId,
			"error":  err.Error(),
		})
	}
}

func singleItem(item string) <-chan string {
	ch := make(chan string, 1)
	ch <- item
	close(ch)
	return ch
}
