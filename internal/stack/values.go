package stack

// Ref resolves to the primary identifier of a resource (its physical ID, ARN or name,
// depending on the resource type).
type Ref struct {
	Resource ResourceId
}

// Attr resolves to a named attribute of a resource, e.g. "Endpoint.Address".
type Attr struct {
	Resource ResourceId
	Name     string
}

// SecretValue is a deploy-time dynamic reference to one JSON key of a secret.
type SecretValue struct {
	Secret ResourceId
	Key    string
}

// Param references a template parameter by name.
type Param string

// Pseudo references a pseudo parameter supplied by the provider at deploy time.
type Pseudo string

const (
	Region    Pseudo = "AWS::Region"
	AccountId Pseudo = "AWS::AccountId"
	Partition Pseudo = "AWS::Partition"
	URLSuffix Pseudo = "AWS::URLSuffix"
	StackName Pseudo = "AWS::StackName"
)

// Fn is an intrinsic function call rendered as {Name: Args}.
type Fn struct {
	Name string
	Args any
}

func Join(sep string, parts ...any) Fn {
	return Fn{Name: "Fn::Join", Args: []any{sep, parts}}
}

func Select(index int, list any) Fn {
	return Fn{Name: "Fn::Select", Args: []any{index, list}}
}

func GetAZs() Fn {
	return Fn{Name: "Fn::GetAZs", Args: ""}
}

func Cidr(block any, count, cidrBits int) Fn {
	return Fn{Name: "Fn::Cidr", Args: []any{block, count, cidrBits}}
}

func tag(key string, value any) map[string]any {
	return map[string]any{"Key": key, "Value": value}
}

// collectRefs walks a property value and reports every resource it points at.
func collectRefs(v any, add func(ResourceId)) {
	switch val := v.(type) {
	case Ref:
		add(val.Resource)
	case Attr:
		add(val.Resource)
	case SecretValue:
		add(val.Secret)
	case Fn:
		collectRefs(val.Args, add)
	case Properties:
		for _, item := range val {
			collectRefs(item, add)
		}
	case map[string]any:
		for _, item := range val {
			collectRefs(item, add)
		}
	case []any:
		for _, item := range val {
			collectRefs(item, add)
		}
	}
}
