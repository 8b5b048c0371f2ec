package namespace

import (
	"github.com/croftlabs/croft/pkg/types"
)

// ApplyDefaults fills unset request and limit axes from the limit range's
// DefaultRequest and Default values. A nil limit range leaves both inputs
// untouched. Pure function of the limit-range snapshot.
func ApplyDefaults(lr *types.LimitRange, requests, limits types.ResourcePair) (types.ResourcePair, types.ResourcePair) {
	if lr == nil {
		return requests, limits
	}
	if requests.CPU == 0 {
		requests.CPU = lr.DefaultRequest.CPU
	}
	if requests.Memory == 0 {
		requests.Memory = lr.DefaultRequest.Memory
	}
	if limits.CPU == 0 {
		limits.CPU = lr.Default.CPU
	}
	if limits.Memory == 0 {
		limits.Memory = lr.Default.Memory
	}
	return requests, limits
}

// ValidateResources checks requests and limits against the limit range:
// min <= requests, limits <= max, and requests <= limits on every set axis.
// Pure function of the limit-range snapshot; lr may be nil, in which case
// only requests <= limits is enforced.
func ValidateResources(lr *types.LimitRange, requests, limits types.ResourcePair) error {
	if limits.CPU > 0 && requests.CPU > limits.CPU {
		return types.Errorf(types.CodeValidation,
			"cpu request %d exceeds limit %d", requests.CPU, limits.CPU)
	}
	if limits.Memory > 0 && requests.Memory > limits.Memory {
		return types.Errorf(types.CodeValidation,
			"memory request %d exceeds limit %d", requests.Memory, limits.Memory)
	}
	if lr == nil {
		return nil
	}
	if lr.Min.CPU > 0 && requests.CPU < lr.Min.CPU {
		return types.Errorf(types.CodeValidation,
			"cpu request %d is below the namespace minimum %d", requests.CPU, lr.Min.CPU)
	}
	if lr.Min.Memory > 0 && requests.Memory < lr.Min.Memory {
		return types.Errorf(types.CodeValidation,
			"memory request %d is below the namespace minimum %d", requests.Memory, lr.Min.Memory)
	}
	if lr.Max.CPU > 0 && limits.CPU > lr.Max.CPU {
		return types.Errorf(types.CodeValidation,
			"cpu limit %d exceeds the namespace maximum %d", limits.CPU, lr.Max.CPU)
	}
	if lr.Max.Memory > 0 && limits.Memory > lr.Max.Memory {
		return types.Errorf(types.CodeValidation,
			"memory limit %d exceeds the namespace maximum %d", limits.Memory, lr.Max.Memory)
	}
	return nil
}
