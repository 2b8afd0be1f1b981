package models

import "fmt"

// ActionType is the kind of confirmatory test ordered against a variant.
type ActionType string

const (
	ActionSanger          ActionType = "sanger"
	ActionBloodTest       ActionType = "blood-test"
	ActionPeripheralBlood ActionType = "peripheral-blood"
	ActionParentalTesting ActionType = "parental-testing"
	ActionHemoglobin      ActionType = "hemoglobin"
	ActionCounseling      ActionType = "counseling"
	ActionCancerRisk      ActionType = "cancer-risk"
)

var actionLabels = map[ActionType]string{
	ActionSanger:          "Sanger Sequencing",
	ActionBloodTest:       "Blood Test",
	ActionPeripheralBlood: "Peripheral Blood Smear",
	ActionParentalTesting: "Parental Testing",
	ActionHemoglobin:      "Hemoglobin Electrophoresis",
	ActionCounseling:      "Genetic Counseling",
	ActionCancerRisk:      "Cancer Risk Assessment",
}

// ActionTypes lists every test kind in menu order.
var ActionTypes = []ActionType{
	ActionSanger,
	ActionBloodTest,
	ActionPeripheralBlood,
	ActionParentalTesting,
	ActionHemoglobin,
	ActionCounseling,
	ActionCancerRisk,
}

// Label returns the display name, or the raw value for unknown types.
func (a ActionType) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}

func (a ActionType) Valid() bool {
	_, ok := actionLabels[a]
	return ok
}

// ParseActionType validates a wire value.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown action type %q", s)
	}
	return a, nil
}
