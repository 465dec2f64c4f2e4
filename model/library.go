package model

import (
	"errors"
	"fmt"
	"sort"
)

// library holds the built-in models. Candidate generators are the known
// symmetries of each model.
var library = map[string]Definition{
	"exponential": {
		Name:        "exponential",
		Description: "Exponential growth x' = x",
		States:      []StateDefinition{{Name: "x", RHS: "x"}},
		Generators: []GeneratorDefinition{
			{Name: "scaling", Eta: []string{"x"}},
			{Name: "translation", Xi: "1", Eta: []string{"0"}},
		},
	},
	"saddle": {
		Name:        "saddle",
		Description: "Linear saddle x' = x, y' = -y",
		States: []StateDefinition{
			{Name: "x", RHS: "x"},
			{Name: "y", RHS: "-y"},
		},
		Generators: []GeneratorDefinition{
			{Name: "scale-x", Eta: []string{"x", "0"}},
			{Name: "scale-y", Eta: []string{"0", "y"}},
			{Name: "translation", Xi: "1", Eta: []string{"0", "0"}},
		},
	},
	"gompertz-system": {
		Name:        "gompertz-system",
		Description: "Gompertz growth as a system: W' = G*W, G' = -kG*G",
		Parameters:  []string{"kG"},
		States: []StateDefinition{
			{Name: "W", RHS: "G*W"},
			{Name: "G", RHS: "-kG*G"},
		},
		Generators: []GeneratorDefinition{
			{Name: "X1", Xi: "1", Eta: []string{"0", "0"}},
			{Name: "X2", Eta: []string{"W*ln(W)", "G"}},
			{Name: "X3", Eta: []string{"W", "0"}},
		},
	},
	"gompertz-classical": {
		Name:        "gompertz-classical",
		Description: "Classical Gompertz growth W' = kG*exp(-kG*(t - Ti))*W",
		Parameters:  []string{"kG", "Ti"},
		States:      []StateDefinition{{Name: "W", RHS: "kG*exp(-kG*(t - Ti))*W"}},
		Generators: []GeneratorDefinition{
			{Name: "X1", Xi: "exp(kG*t)", Eta: []string{"0"}},
			{Name: "X4", Eta: []string{"W"}},
			{Name: "X5", Xi: "1", Eta: []string{"-kG*W*ln(W)"}},
		},
	},
	"gompertz-autonomous": {
		Name:        "gompertz-autonomous",
		Description: "Autonomous Gompertz growth W' = -kG*W*ln(W/A)",
		Parameters:  []string{"kG", "A"},
		States:      []StateDefinition{{Name: "W", RHS: "-kG*W*ln(W/A)"}},
		Generators: []GeneratorDefinition{
			{Name: "X1", Xi: "exp(kG*t)*ln(W/A)", Eta: []string{"0"}},
			{Name: "X2", Eta: []string{"exp(-kG*t)*W"}},
			{Name: "X3", Eta: []string{"W*ln(W/A)"}},
			{Name: "X4", Xi: "1", Eta: []string{"0"}},
		},
	},
	"lotka-volterra": {
		Name:        "lotka-volterra",
		Description: "Lotka-Volterra predator-prey model",
		Parameters:  []string{"a", "b", "c", "d"},
		States: []StateDefinition{
			{Name: "N", RHS: "a*N - b*N*P"},
			{Name: "P", RHS: "c*N*P - d*P"},
		},
		Generators: []GeneratorDefinition{
			{Name: "translation", Xi: "1", Eta: []string{"0", "0"}},
		},
	},
	"lac-operon": {
		Name:        "lac-operon",
		Description: "Lac operon gene regulation (mRNA, beta-galactosidase, lactose, allolactose, permease)",
		Parameters: []string{
			"alpha_M", "K_1", "K", "Gamma_0", "gamma_M", "n",
			"alpha_B", "gamma_B",
			"alpha_L", "L_e", "K_Le", "beta_L1", "K_L1", "beta_L2", "K_L2", "gamma_L",
			"alpha_A", "K_L", "beta_A", "K_A", "gamma_A",
			"alpha_P", "gamma_P",
		},
		States: []StateDefinition{
			{Name: "M", RHS: "alpha_M*(1 + K_1*A^n)/(K + K_1*A^n) + Gamma_0 - gamma_M*M"},
			{Name: "B", RHS: "alpha_B*M - gamma_B*B"},
			{Name: "L", RHS: "alpha_L*P*L_e/(K_Le + L_e) - beta_L1*P*L/(K_L1 + L) - beta_L2*B*L/(K_L2 + L) - gamma_L*L"},
			{Name: "A", RHS: "alpha_A*B*L/(K_L + L) - beta_A*B*A/(K_A + A) - gamma_A*A"},
			{Name: "P", RHS: "alpha_P*M - gamma_P*P"},
		},
		Generators: []GeneratorDefinition{
			{Name: "translation", Xi: "1", Eta: []string{"0", "0", "0", "0", "0"}},
		},
	},
}

// ErrUnknownModel is returned by Builtin for names not in the library.
var ErrUnknownModel = errors.New("unknown built-in model")

// BuiltinNames lists the built-in models, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(library))
	for name := range library {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of a built-in model.
func Builtin(name string) (*System, error) {
	d, ok := library[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	return d.System()
}

// BuiltinDescription returns the one-line description of a built-in model.
func BuiltinDescription(name string) string {
	return library[name].Description
}
