package console

import "context"

// Confirm asks a yes or no question defaulting to no. It returns true
// without asking when ctx assumes yes.
func Confirm(ctx context.Context, question string) (bool, error) {
	if AssumeYes(ctx) {
		return true, nil
	}
	answer, err := Prompt(question, No, Yes)
	if err != nil {
		return false, err
	}
	return answer == Yes, nil
}
