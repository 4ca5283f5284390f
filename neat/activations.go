package neat

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// ActivationFunc maps a node's weighted input to its output.
type ActivationFunc func(z float64) float64

var (
	activationsMu sync.RWMutex
	activations   = map[string]ActivationFunc{
		"sigmoid":  Sigmoid,
		"tanh":     Tanh,
		"relu":     ReLU,
		"identity": Identity,
		"clamped":  Clamped,
		"gauss":    Gaussian,
		"gaussian": Gaussian,
		"abs":      Absolute,
		"absolute": Absolute,
		"sin":      Sine,
		"sine":     Sine,
		"cos":      Cosine,
		"inv":      Inv,
		"log":      Log,
		"exp":      Exp,
		"hat":      Hat,
		"square":   Square,
		"cube":     Cube,
	}
)

// RegisterActivation makes fn selectable by name in activation_options and
// resolvable when a saved network is loaded. Names must be unique.
func RegisterActivation(name string, fn ActivationFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("invalid activation registration %q", name)
	}
	activationsMu.Lock()
	defer activationsMu.Unlock()
	if _, exists := activations[name]; exists {
		return fmt.Errorf("activation function %q already registered", name)
	}
	activations[name] = fn
	return nil
}

// MustRegisterActivation is like RegisterActivation but panics on error.
// It is intended for package init functions.
func MustRegisterActivation(name string, fn ActivationFunc) {
	if err := RegisterActivation(name, fn); err != nil {
		panic(err)
	}
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	activationsMu.RLock()
	defer activationsMu.RUnlock()
	if fn, ok := activations[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// Activations lists the registered activation names in sorted order.
func Activations() []string {
	activationsMu.RLock()
	defer activationsMu.RUnlock()
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sigmoid is the logistic function with the neat-python steepness of 5.
func Sigmoid(z float64) float64 {
	z = clamp(5.0*z, -60.0, 60.0)
	return 1.0 / (1.0 + math.Exp(-z))
}

func Tanh(z float64) float64 {
	z = clamp(2.5*z, -60.0, 60.0)
	return math.Tanh(z)
}

func ReLU(z float64) float64 {
	return math.Max(0, z)
}

func Identity(z float64) float64 {
	return z
}

func Clamped(z float64) float64 {
	return clamp(z, -1.0, 1.0)
}

func Gaussian(z float64) float64 {
	z = clamp(z, -3.4, 3.4)
	return math.Exp(-5.0 * z * z)
}

func Absolute(z float64) float64 {
	return math.Abs(z)
}

func Sine(z float64) float64 {
	z = clamp(5.0*z, -60.0, 60.0)
	return math.Sin(z)
}

func Cosine(z float64) float64 {
	return math.Cos(z)
}

// Inv returns 1/z, or 0 where that is undefined.
func Inv(z float64) float64 {
	if z == 0.0 {
		return 0.0
	}
	return 1.0 / z
}

func Log(z float64) float64 {
	return math.Log(math.Max(z, 1e-7))
}

func Exp(z float64) float64 {
	return math.Exp(clamp(z, -60.0, 60.0))
}

// Hat is a triangular pulse centred on 0.
func Hat(z float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(z))
}

func Square(z float64) float64 {
	return z * z
}

func Cube(z float64) float64 {
	return z * z * z
}
