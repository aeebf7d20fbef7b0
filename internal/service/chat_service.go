package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/metrics"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

// RandomSource picks the fallback reply. *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

type topicRule struct {
	topic    string
	keywords []string
	reply    string
}

// Rules are checked in order; the first topic with a matching keyword wins.
var topicRules = []topicRule{
	{
		topic:    models.TopicAnxiety,
		keywords: []string{"ansioso", "ansiedade", "nervoso", "anxious", "anxiety", "nervous"},
		reply:    "Entendo que você está sentindo ansiedade. Vamos tentar um exercício de respiração: inspire por 4 segundos, segure por 4, expire por 6. Repita algumas vezes. Como você está se sentindo agora?",
	},
	{
		topic:    models.TopicSadness,
		keywords: []string{"triste", "deprimido", "sozinho", "sad", "depressed", "lonely"},
		reply:    "Sinto muito que você esteja se sentindo assim. Seus sentimentos são válidos e você não está sozinho. Às vezes, conversar sobre o que está acontecendo pode ajudar. Gostaria de me contar mais sobre o que está te deixando triste?",
	},
	{
		topic:    models.TopicStress,
		keywords: []string{"estresse", "estressado", "pressão", "stress", "stressed", "pressure"},
		reply:    "O estresse pode ser muito desafiador. Uma técnica que pode ajudar é a regra 5-4-3-2-1: identifique 5 coisas que você pode ver, 4 que pode tocar, 3 que pode ouvir, 2 que pode cheirar e 1 que pode saborear. Isso pode te ajudar a se conectar com o momento presente.",
	},
}

var fallbackReplies = []string{
	"Entendo que você está passando por um momento difícil. É importante reconhecer seus sentimentos. Que tal tentarmos um exercício de respiração?",
	"Obrigado por compartilhar isso comigo. Seus sentimentos são válidos. Como posso te ajudar melhor neste momento?",
	"Percebo que você está enfrentando desafios. Lembre-se de que buscar ajuda é um sinal de força, não de fraqueza.",
	"É normal sentir-se assim às vezes. Vamos trabalhar juntos para encontrar estratégias que possam te ajudar.",
}

// ChatService is the scripted support chat. Replies are picked from fixed
// texts by keyword; nothing is learned between calls.
type ChatService struct {
	exchanges  domain.ExchangeRepository
	logger     *zerolog.Logger
	logTimeout time.Duration

	mu  sync.Mutex
	rnd RandomSource

	pending sync.WaitGroup
}

func NewChatService(exchanges domain.ExchangeRepository, rnd RandomSource, logTimeout time.Duration, logger *zerolog.Logger) *ChatService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logTimeout <= 0 {
		logTimeout = models.ExchangeLogTimeout * time.Second
	}
	return &ChatService{
		exchanges:  exchanges,
		logger:     logger,
		logTimeout: logTimeout,
		rnd:        rnd,
	}
}

// Respond classifies the message and returns the scripted reply. When
// userID is set the exchange is stored in the background; a failed write is
// logged and never reaches the caller.
func (s *ChatService) Respond(ctx context.Context, message string, userID *int64) (*models.ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		verr := &domain.ValidationError{}
		verr.Add("message", "required")
		return nil, verr
	}

	topic, text := s.classify(message)
	reply := &models.ChatReply{
		Text:      text,
		Topic:     topic,
		CreatedAt: time.Now(),
	}
	metrics.IncChatReply(topic)

	if userID != nil && s.exchanges != nil {
		s.logExchange(ctx, *userID, message, text, reply.CreatedAt)
	}
	return reply, nil
}

func (s *ChatService) classify(message string) (string, string) {
	lower := strings.ToLower(message)
	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.topic, rule.reply
			}
		}
	}

	s.mu.Lock()
	i := s.rnd.Intn(len(fallbackReplies))
	s.mu.Unlock()
	return models.TopicGeneral, fallbackReplies[i]
}

func (s *ChatService) logExchange(ctx context.Context, userID int64, message, reply string, at time.Time) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logTimeout)
		defer cancel()

		ex := &models.AIExchange{UserID: userID, Message: message, Reply: reply, CreatedAt: at}
		if err := s.exchanges.CreateExchange(writeCtx, ex); err != nil {
			metrics.IncExchangeLogFailure()
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to store chat exchange")
		}
	}()
}

// Wait blocks until every pending exchange write has finished.
func (s *ChatService) Wait() {
	s.pending.Wait()
}

// History returns the stored exchanges of a user, oldest first.
func (s *ChatService) History(ctx context.Context, userID int64) ([]models.AIExchange, error) {
	if s.exchanges == nil {
		return []models.AIExchange{}, nil
	}
	return s.exchanges.ListUserExchanges(ctx, userID)
}
