package v1alpha1

// GroupVersion identifies this version of the configuration space document.
const GroupVersion = "configspace.llm-d.ai/v1alpha1"

// KindConfigurationSpace is the kind of a configuration space document.
const KindConfigurationSpace = "ConfigurationSpace"

// ConfigurationSpaceSpec is the declarative description of a configuration space:
// its parameters, how they are sampled, when they are active and which
// combinations are excluded.
type ConfigurationSpaceSpec struct {
	// APIVersion must be GroupVersion when set.
	// +optional
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`

	// Kind must be KindConfigurationSpace when set.
	// +optional
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Name of the configuration space.
	// +kubebuilder:validation:MinLength=1
	// +kubebuilder:validation:Required
	Name string `json:"name" yaml:"name"`

	// Parameters of the space, in index order. Names must be unique.
	// +kubebuilder:validation:MinItems=1
	Parameters []ParameterSpec `json:"parameters" yaml:"parameters"`

	// Distributions overrides the default (uniform) distribution of some
	// parameters. A distribution spanning several parameters draws them jointly.
	// +optional
	Distributions []DistributionSpec `json:"distributions,omitempty" yaml:"distributions,omitempty"`

	// Conditions make parameters active only when an expression holds.
	// +optional
	Conditions []ConditionSpec `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// ForbiddenClauses are expressions no sampled configuration may satisfy.
	// Example: "threads > 8 && backend == 'cpu'"
	// +optional
	ForbiddenClauses []string `json:"forbiddenClauses,omitempty" yaml:"forbiddenClauses,omitempty"`
}

// ParameterType selects the kind of a parameter.
// +kubebuilder:validation:Enum=numerical;categorical;ordinal;discrete
type ParameterType string

const (
	ParameterTypeNumerical   ParameterType = "numerical"
	ParameterTypeCategorical ParameterType = "categorical"
	ParameterTypeOrdinal     ParameterType = "ordinal"
	ParameterTypeDiscrete    ParameterType = "discrete"
)

// DataType is the value type of a numerical parameter.
// +kubebuilder:validation:Enum=int;float
type DataType string

const (
	DataTypeInt   DataType = "int"
	DataTypeFloat DataType = "float"
)

// ParameterSpec describes one parameter.
type ParameterSpec struct {
	// Name of the parameter, also used to refer to it in expressions.
	// +kubebuilder:validation:Pattern=`^[A-Za-z_][A-Za-z0-9_.]*$`
	Name string `json:"name" yaml:"name"`

	// Type of the parameter.
	Type ParameterType `json:"type" yaml:"type"`

	// DataType of a numerical parameter. Defaults to float.
	// +optional
	DataType DataType `json:"dataType,omitempty" yaml:"dataType,omitempty"`

	// Lower is the inclusive lower bound of a numerical parameter.
	// +optional
	Lower *float64 `json:"lower,omitempty" yaml:"lower,omitempty"`

	// Upper is the exclusive upper bound of a numerical parameter.
	// +optional
	Upper *float64 `json:"upper,omitempty" yaml:"upper,omitempty"`

	// Quantization of a numerical parameter; values are lower + k*quantization.
	// Zero means continuous.
	// +kubebuilder:validation:Minimum=0
	// +optional
	Quantization *float64 `json:"quantization,omitempty" yaml:"quantization,omitempty"`

	// Default value of a numerical parameter. Defaults to Lower.
	// +optional
	Default *float64 `json:"default,omitempty" yaml:"default,omitempty"`

	// Values of a categorical, ordinal or discrete parameter. Entries are
	// scalars: strings, booleans, integers or floats (numbers only for discrete).
	// +optional
	Values []any `json:"values,omitempty" yaml:"values,omitempty"`

	// DefaultIndex is the position of the default value in Values. Defaults to 0.
	// +optional
	DefaultIndex *int `json:"defaultIndex,omitempty" yaml:"defaultIndex,omitempty"`
}

// DistributionType selects the shape of a distribution component.
// +kubebuilder:validation:Enum=uniform;normal;roulette
type DistributionType string

const (
	DistributionTypeUniform  DistributionType = "uniform"
	DistributionTypeNormal   DistributionType = "normal"
	DistributionTypeRoulette DistributionType = "roulette"
)

// Scale of a uniform or normal component.
// +kubebuilder:validation:Enum=linear;log
type Scale string

const (
	ScaleLinear Scale = "linear"
	ScaleLog    Scale = "log"
)

// DistributionSpec assigns a distribution to one or more parameters.
type DistributionSpec struct {
	// Parameters drawn by this distribution, one per component.
	// +kubebuilder:validation:MinItems=1
	Parameters []string `json:"parameters" yaml:"parameters"`

	// Components holds one single-dimension distribution per parameter. Several
	// components are combined into a multivariate distribution.
	Components []ComponentSpec `json:"components" yaml:"components"`
}

// ComponentSpec describes a one-dimensional distribution.
type ComponentSpec struct {
	// Type of the component.
	Type DistributionType `json:"type" yaml:"type"`

	// Lower and Upper bound a uniform component. They default to the domain
	// of the parameter (index range for list parameters).
	// +optional
	Lower *float64 `json:"lower,omitempty" yaml:"lower,omitempty"`
	// +optional
	Upper *float64 `json:"upper,omitempty" yaml:"upper,omitempty"`

	// Mu and Sigma parametrize a normal component.
	// +optional
	Mu *float64 `json:"mu,omitempty" yaml:"mu,omitempty"`
	// +kubebuilder:validation:Minimum=0
	// +optional
	Sigma *float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`

	// Scale of a uniform or normal component. Defaults to linear.
	// +optional
	Scale Scale `json:"scale,omitempty" yaml:"scale,omitempty"`

	// Quantization of a uniform or normal component. Defaults to the one of
	// the parameter.
	// +optional
	Quantization *float64 `json:"quantization,omitempty" yaml:"quantization,omitempty"`

	// Areas weight the values of a roulette component, one per index.
	// +optional
	Areas []float64 `json:"areas,omitempty" yaml:"areas,omitempty"`
}

// ConditionSpec activates a parameter only when an expression evaluates to true.
type ConditionSpec struct {
	// Parameter is the name of the conditional parameter.
	Parameter string `json:"parameter" yaml:"parameter"`

	// Expression over other parameters, e.g. "backend == 'gpu'".
	// +kubebuilder:validation:MinLength=1
	Expression string `json:"expression" yaml:"expression"`
}
