// Package promo generates and redeems time-extension codes.
package promo

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/models"
	"github.com/iOSSergey/wireguard-telegram-bot/provision"
)

// Redemption failures the presentation layer renders directly.
var (
	ErrBadFormat     = errors.New("promo code has invalid format")
	ErrCodeNotFound  = errors.New("promo code not found")
	ErrCodeUsed      = errors.New("promo code already used")
	ErrCodeCorrupted = errors.New("promo code corrupted")
)

// codePattern is checked before any store lookup.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{2}-[A-Z]{4}-\d+D$`)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// words rotate by wall clock so back-to-back codes differ in the middle
// token too. Not a secret, just collision thinning.
var words = []string{"JULY", "AUGU", "SEPT", "OCTO"}

// RedemptionResult tells the caller what the redeemed code did.
type RedemptionResult struct {
	Days      int
	Protocol  string
	ExpiresAt time.Time
	// Created is true when the redemption provisioned a fresh peer rather
	// than extending an existing one.
	Created bool
	// Descriptor is the connection artifact for a freshly created peer;
	// empty on extension (the peer keeps its existing one).
	Descriptor string
}

// Service generates and redeems promo codes against the provisioning
// engines selected by the protocol policy.
type Service struct {
	store   *database.PromoStore
	policy  *database.PolicyStore
	engines map[string]*provision.Engine
}

func NewService(store *database.PromoStore, policy *database.PolicyStore, engines ...*provision.Engine) *Service {
	byProtocol := make(map[string]*provision.Engine, len(engines))
	for _, engine := range engines {
		byProtocol[engine.Protocol()] = engine
	}
	return &Service{store: store, policy: policy, engines: byProtocol}
}

// Generate creates and stores a fresh code granting the given number of
// days. The unique index makes an unlucky collision a retry, not a failure.
func (s *Service) Generate(days int, createdBy int64) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		code := NewCode(days)
		err := s.store.Save(code, days, createdBy)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// NewCode builds a code of the fixed shape XX-WORD-<days>D.
func NewCode(days int) string {
	prefix := []byte{
		codeCharset[rand.Intn(len(codeCharset))],
		codeCharset[rand.Intn(len(codeCharset))],
	}
	word := words[int(time.Now().Unix())%len(words)]
	return fmt.Sprintf("%s-%s-%dD", prefix, word, days)
}

// EmbeddedDays extracts the day count carried in the code string itself.
// The code must already match the expected shape.
func EmbeddedDays(code string) (int, error) {
	tail := code[strings.LastIndex(code, "-")+1:]
	return strconv.Atoi(strings.TrimSuffix(tail, "D"))
}

// Redeem consumes a code for the given identity: an existing peer has its
// expiry extended (and is re-enabled if it was disabled); an identity with
// no peer gets a fresh one provisioned with the code's day count as TTL.
// The code is marked activated only after the peer mutation succeeds, so a
// failed provisioning never burns it.
func (s *Service) Redeem(code string, telegramID int64, name string) (*RedemptionResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return nil, ErrBadFormat
	}

	promo, err := s.store.Get(code)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrCodeNotFound
	}
	if promo.ActivatedAt != nil {
		return nil, ErrCodeUsed
	}
	embedded, err := EmbeddedDays(code)
	if err != nil || embedded != promo.Days {
		return nil, ErrCodeCorrupted
	}

	result, err := s.applyToPeer(promo.Days, telegramID, name)
	if err != nil {
		return nil, err
	}

	if err := s.store.Activate(code, telegramID); err != nil {
		return nil, err
	}
	return result, nil
}

// applyToPeer finds the identity's existing peer (primary protocol first,
// then any other enabled one) and extends it, or provisions a fresh peer on
// the primary protocol.
func (s *Service) applyToPeer(days int, telegramID int64, name string) (*RedemptionResult, error) {
	policy, err := s.policy.Get()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, engine := range s.orderedEngines(policy) {
		status, err := engine.Backend().Lookup(telegramID)
		if err != nil {
			return nil, err
		}
		if status == nil {
			continue
		}
		expiresAt, err := engine.Extend(telegramID, days, now)
		if err != nil {
			return nil, err
		}
		return &RedemptionResult{
			Days:      days,
			Protocol:  engine.Protocol(),
			ExpiresAt: expiresAt,
		}, nil
	}

	primary, ok := s.engines[policy.PrimaryProtocol]
	if !ok {
		return nil, fmt.Errorf("no engine for primary protocol %q", policy.PrimaryProtocol)
	}
	descriptor, err := primary.Provision(telegramID, name, days)
	if err != nil {
		return nil, err
	}
	return &RedemptionResult{
		Days:       days,
		Protocol:   primary.Protocol(),
		ExpiresAt:  now.Add(time.Duration(days) * 24 * time.Hour),
		Created:    true,
		Descriptor: descriptor,
	}, nil
}

// orderedEngines lists the enabled engines, primary first.
func (s *Service) orderedEngines(policy models.ProtocolPolicy) []*provision.Engine {
	var out []*provision.Engine
	if engine, ok := s.engines[policy.PrimaryProtocol]; ok {
		out = append(out, engine)
	}
	for protocol, engine := range s.engines {
		if protocol == policy.PrimaryProtocol || !policy.Enabled(protocol) {
			continue
		}
		out = append(out, engine)
	}
	return out
}
