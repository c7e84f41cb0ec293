package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mailscope-backend/internal/ai/domain"
	"mailscope-backend/pkg/errs"
)

// Labels the completion must carry. The templates instruct the provider to
// reply exactly in this shape; anything short of it is rejected, never
// patched up.
const (
	labelSummary        = "SUMMARY:"
	labelKeyPoints      = "KEY_POINTS:"
	labelActionRequired = "ACTION_REQUIRED:"
	labelUrgency        = "URGENCY:"
	labelSuggestedTone  = "SUGGESTED_TONE:"
	labelConfidence     = "CONFIDENCE:"
	labelBody           = "BODY:"
)

var subjectLine = regexp.MustCompile(`(?i)^\s*(subject|re)\s*:`)

func malformed(op string, err error) error {
	return errs.AI(op, errs.ReasonMalformedOutput, err)
}

// parseSummary validates a summarization completion against the labelled-line
// contract. A missing or invalid field fails the whole reply; no partial
// artifact is ever returned.
func parseSummary(reply string) (*domain.SummaryArtifact, error) {
	const op = "ai.parseSummary"

	artifact := &domain.SummaryArtifact{}
	seen := map[string]bool{}
	inKeyPoints := false

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, labelSummary):
			artifact.Summary = strings.TrimSpace(strings.TrimPrefix(line, labelSummary))
			seen[labelSummary] = true
			inKeyPoints = false

		case strings.HasPrefix(line, labelKeyPoints):
			seen[labelKeyPoints] = true
			inKeyPoints = true

		case strings.HasPrefix(line, labelActionRequired):
			value := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, labelActionRequired)))
			switch value {
			case "yes":
				artifact.ActionRequired = true
			case "no":
				artifact.ActionRequired = false
			default:
				return nil, malformed(op, fmt.Errorf("ACTION_REQUIRED must be yes or no, got %q", value))
			}
			seen[labelActionRequired] = true
			inKeyPoints = false

		case strings.HasPrefix(line, labelUrgency):
			value := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, labelUrgency)))
			switch value {
			case domain.UrgencyLow, domain.UrgencyMedium, domain.UrgencyHigh:
				artifact.UrgencyLevel = value
			default:
				return nil, malformed(op, fmt.Errorf("URGENCY must be low, medium or high, got %q", value))
			}
			seen[labelUrgency] = true
			inKeyPoints = false

		case strings.HasPrefix(line, labelSuggestedTone):
			artifact.SuggestedTone = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, labelSuggestedTone)))
			seen[labelSuggestedTone] = true
			inKeyPoints = false

		case strings.HasPrefix(line, labelConfidence):
			confidence, err := parseConfidence(strings.TrimPrefix(line, labelConfidence))
			if err != nil {
				return nil, malformed(op, err)
			}
			artifact.Confidence = confidence
			seen[labelConfidence] = true
			inKeyPoints = false

		case inKeyPoints && strings.HasPrefix(line, "-"):
			point := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if point != "" {
				artifact.KeyPoints = append(artifact.KeyPoints, point)
			}

		default:
			// A summary may spill onto a second line before the next label.
			if seen[labelSummary] && !seen[labelKeyPoints] {
				artifact.Summary = strings.TrimSpace(artifact.Summary + " " + line)
			}
		}
	}

	for _, label := range []string{labelSummary, labelKeyPoints, labelActionRequired, labelUrgency, labelSuggestedTone, labelConfidence} {
		if !seen[label] {
			return nil, malformed(op, fmt.Errorf("reply is missing %s", strings.TrimSuffix(label, ":")))
		}
	}
	if artifact.Summary == "" {
		return nil, malformed(op, fmt.Errorf("SUMMARY is empty"))
	}
	if len(artifact.KeyPoints) == 0 {
		return nil, malformed(op, fmt.Errorf("KEY_POINTS lists no points"))
	}
	if artifact.SuggestedTone == "" {
		return nil, malformed(op, fmt.Errorf("SUGGESTED_TONE is empty"))
	}

	return artifact, nil
}

// parseResponse validates a response generation completion: a BODY block
// followed by a CONFIDENCE line. Subject-looking lines inside the body are
// stripped so a generated reply never carries its own header.
func parseResponse(reply string) (*domain.ResponseArtifact, error) {
	const op = "ai.parseResponse"

	var bodyLines []string
	inBody := false
	seenBody := false
	seenConfidence := false
	confidence := 0.0

	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, labelBody):
			inBody = true
			seenBody = true
			if rest := strings.TrimSpace(strings.TrimPrefix(trimmed, labelBody)); rest != "" {
				bodyLines = append(bodyLines, rest)
			}

		case strings.HasPrefix(trimmed, labelConfidence):
			value, err := parseConfidence(strings.TrimPrefix(trimmed, labelConfidence))
			if err != nil {
				return nil, malformed(op, err)
			}
			confidence = value
			seenConfidence = true
			inBody = false

		case inBody:
			if subjectLine.MatchString(line) {
				continue
			}
			bodyLines = append(bodyLines, line)
		}
	}

	if !seenBody {
		return nil, malformed(op, fmt.Errorf("reply is missing BODY"))
	}
	if !seenConfidence {
		return nil, malformed(op, fmt.Errorf("reply is missing CONFIDENCE"))
	}

	body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
	if body == "" {
		return nil, malformed(op, fmt.Errorf("BODY is empty"))
	}

	return &domain.ResponseArtifact{
		Body:       body,
		Confidence: confidence,
		WordCount:  len(strings.Fields(body)),
	}, nil
}

func parseConfidence(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("CONFIDENCE is not a number: %w", err)
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("CONFIDENCE %v is outside [0,1]", value)
	}
	return value, nil
}
