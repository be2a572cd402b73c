package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/soaringjerry/psyscore/internal/catalog"
)

// Answers maps item ids to the selected option, as the string the form
// submitted ("0".."3"). Sets are sparse: unanswered items are absent.
type Answers map[int]string

// DecodeAnswers converts string-keyed answers (JSON objects, CSV headers)
// into an Answers set. Keys that are not integers are rejected.
func DecodeAnswers(raw map[string]string) (Answers, error) {
	out := make(Answers, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, NewInvalidError(fmt.Sprintf("answer key %q is not an item id", k))
		}
		out[id] = v
	}
	return out, nil
}

// DecodeAnswersJSON accepts JSON answer values that are strings or numbers;
// null clears the answer.
func DecodeAnswersJSON(raw map[string]json.RawMessage) (Answers, error) {
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		s := strings.TrimSpace(string(v))
		switch {
		case s == "null":
			values[k] = ""
		case strings.HasPrefix(s, `"`):
			var str string
			if err := json.Unmarshal(v, &str); err != nil {
				return nil, NewInvalidError(fmt.Sprintf("answer %s: %v", k, err))
			}
			values[k] = str
		default:
			values[k] = s
		}
	}
	return DecodeAnswers(values)
}

// Encode is the inverse of DecodeAnswers.
func (a Answers) Encode() map[string]string {
	out := make(map[string]string, len(a))
	for id, v := range a {
		out[strconv.Itoa(id)] = v
	}
	return out
}

// ItemIDs returns the answered item ids in ascending order.
func (a Answers) ItemIDs() []int {
	ids := make([]int, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// parseAnswer decodes one answer value. ok is false for a blank value, which
// counts as unanswered.
func parseAnswer(itemID int, value string, maxValue int) (v int, ok bool, err error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, false, nil
	}
	n, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, false, &AnswerError{ItemID: itemID, Value: value, Reason: "not an integer"}
	}
	if n < 0 || n > maxValue {
		return 0, false, &AnswerError{ItemID: itemID, Value: value, Reason: fmt.Sprintf("out of range 0..%d", maxValue)}
	}
	return n, true, nil
}

// ValidateAnswers checks every answer addressed to a catalog item and
// returns the first failure in item id order. Unknown ids are ignored.
func ValidateAnswers(cat *catalog.Catalog, answers Answers) error {
	for _, id := range answers.ItemIDs() {
		if !cat.HasItem(id) {
			continue
		}
		if _, _, err := parseAnswer(id, answers[id], cat.MaxValue()); err != nil {
			return err
		}
	}
	return nil
}

// CorrectedValue returns the scored value of one answered item, applying
// reversal. ok is false when the item is unanswered.
func CorrectedValue(cat *catalog.Catalog, itemID int, answers Answers) (value int, ok bool, err error) {
	raw, present := answers[itemID]
	if !present {
		return 0, false, nil
	}
	v, ok, err := parseAnswer(itemID, raw, cat.MaxValue())
	if err != nil || !ok {
		return 0, false, err
	}
	if cat.IsReversed(itemID) {
		v = ReverseScore(v, cat.MaxValue())
	}
	return v, true, nil
}
