package stack

import (
	"errors"
	"fmt"
	"math/bits"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidProps = errors.New("invalid stack properties")

type Environment struct {
	Account string `yaml:"account"`
	Region  string `yaml:"region"`
}

// EnvironmentFromEnv reads the deployment target the same way the CDK toolkit exports it.
func EnvironmentFromEnv() Environment {
	return Environment{
		Account: os.Getenv("CDK_DEFAULT_ACCOUNT"),
		Region:  firstNonEmpty(os.Getenv("CDK_DEFAULT_REGION"), os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION")),
	}
}

func (e Environment) String() string {
	account, region := e.Account, e.Region
	if account == "" {
		account = "unknown-account"
	}
	if region == "" {
		region = "unknown-region"
	}
	return "aws://" + account + "/" + region
}

type NetworkProps struct {
	Name        string `yaml:"name"`
	Cidr        string `yaml:"cidr"`
	MaxAzs      int    `yaml:"maxAzs"`
	NatGateways int    `yaml:"natGateways"`
}

type SecurityGroupProps struct {
	Name string `yaml:"name"`
}

type SecretProps struct {
	Name              string `yaml:"name"`
	SecretName        string `yaml:"secretName"`
	Username          string `yaml:"username"`
	GenerateStringKey string `yaml:"generateStringKey"`
}

type DatabaseProps struct {
	Name                string `yaml:"name"`
	Engine              string `yaml:"engine"`
	EngineVersion       string `yaml:"engineVersion"`
	InstanceClass       string `yaml:"instanceClass"`
	AllocatedStorage    int    `yaml:"allocatedStorage"`
	MaxAllocatedStorage int    `yaml:"maxAllocatedStorage"`
	DatabaseName        string `yaml:"databaseName"`
	Port                int    `yaml:"port"`
	MultiAz             bool   `yaml:"multiAz"`
	DeletionProtection  bool   `yaml:"deletionProtection"`
}

type FunctionProps struct {
	Name            string   `yaml:"name"`
	Runtime         string   `yaml:"runtime"`
	Entry           string   `yaml:"entry"`
	Handler         string   `yaml:"handler"`
	MemorySize      int      `yaml:"memorySize"`
	ExternalModules []string `yaml:"externalModules"`
	// InlinePassword places the resolved password in DB_PASSWORD. When false the function
	// receives DB_SECRET_ARN and reads the credentials itself.
	InlinePassword bool `yaml:"inlinePassword"`
}

type GatewayProps struct {
	Name        string `yaml:"name"`
	RestApiName string `yaml:"restApiName"`
	Description string `yaml:"description"`
	StageName   string `yaml:"stageName"`
}

type Props struct {
	StackName     string             `yaml:"stackName"`
	Description   string             `yaml:"description"`
	Env           Environment        `yaml:"env"`
	Network       NetworkProps       `yaml:"network"`
	SecurityGroup SecurityGroupProps `yaml:"securityGroup"`
	Secret        SecretProps        `yaml:"secret"`
	Database      DatabaseProps      `yaml:"database"`
	Function      FunctionProps      `yaml:"function"`
	Gateway       GatewayProps       `yaml:"gateway"`
}

func DefaultProps() Props {
	return Props{
		StackName:   "AwsRdsStack",
		Description: "Cart API backed by RDS PostgreSQL",
		Env:         EnvironmentFromEnv(),
		Network: NetworkProps{
			Name:        "NestVpc",
			Cidr:        "10.0.0.0/16",
			MaxAzs:      2,
			NatGateways: 2,
		},
		SecurityGroup: SecurityGroupProps{
			Name: "RDSSecurityGroup",
		},
		Secret: SecretProps{
			Name:              "DBCredentialsSecret",
			SecretName:        "rds-postgres-credentials",
			Username:          "postgres",
			GenerateStringKey: "password",
		},
		Database: DatabaseProps{
			Name:                "PostgresDB",
			Engine:              "postgres",
			EngineVersion:       "15.14",
			InstanceClass:       "db.t3.micro",
			AllocatedStorage:    20,
			MaxAllocatedStorage: 100,
			DatabaseName:        "nestdb",
			Port:                5432,
		},
		Function: FunctionProps{
			Name:       "NestLambdaFunction",
			Runtime:    "nodejs20.x",
			Entry:      "../../nodejs-aws-cart-api/src/main-lambda.ts",
			Handler:    "handler",
			MemorySize: 512,
			ExternalModules: []string{
				"@nestjs/websockets",
				"@nestjs/microservices",
				"@nestjs/websockets/socket-module",
				"@nestjs/microservices/microservices-module",
				"class-validator",
				"class-transformer",
			},
			InlinePassword: true,
		},
		Gateway: GatewayProps{
			Name:        "NestApi",
			RestApiName: "Nest Service",
			Description: "Nest.js with RDS PostgreSQL",
			StageName:   "prod",
		},
	}
}

// LoadProps returns the default properties overlaid with the YAML file at path.
// An empty path returns the defaults.
func LoadProps(path string) (Props, error) {
	props := DefaultProps()
	if path == "" {
		return props, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Props{}, fmt.Errorf("stack: read props %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &props); err != nil {
		return Props{}, fmt.Errorf("stack: parse props %s: %w", path, err)
	}
	return props, nil
}

func (p Props) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidProps}, args...)...))
		}
	}

	check(p.StackName != "", "stack name is required")
	check(p.Network.Name != "", "network name is required")
	check(p.Network.MaxAzs >= 1, "maxAzs must be at least 1, got %d", p.Network.MaxAzs)
	check(p.Network.NatGateways >= 1 && p.Network.NatGateways <= p.Network.MaxAzs,
		"natGateways must be between 1 and maxAzs (%d), got %d", p.Network.MaxAzs, p.Network.NatGateways)
	if _, err := subnetCidrBits(p.Network.Cidr, p.Network.MaxAzs); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidProps, err))
	}

	check(p.SecurityGroup.Name != "", "security group name is required")
	check(p.Secret.Name != "", "secret name is required")
	check(p.Secret.Username != "", "secret username is required")
	check(p.Secret.GenerateStringKey != "", "secret generateStringKey is required")

	check(p.Database.Name != "", "database name is required")
	check(p.Database.DatabaseName != "", "databaseName is required")
	check(p.Database.AllocatedStorage > 0, "allocatedStorage must be positive, got %d", p.Database.AllocatedStorage)
	check(p.Database.AllocatedStorage <= p.Database.MaxAllocatedStorage,
		"allocatedStorage (%d) exceeds maxAllocatedStorage (%d)", p.Database.AllocatedStorage, p.Database.MaxAllocatedStorage)
	check(p.Database.Port > 0 && p.Database.Port <= 65535, "database port %d out of range", p.Database.Port)

	check(p.Function.Name != "", "function name is required")
	check(p.Function.Handler != "", "function handler is required")
	check(p.Function.Runtime != "", "function runtime is required")
	check(p.Function.Entry != "", "function entry is required")
	check(p.Function.MemorySize >= 128 && p.Function.MemorySize <= 10240,
		"function memorySize must be between 128 and 10240, got %d", p.Function.MemorySize)

	check(p.Gateway.Name != "", "gateway name is required")
	check(p.Gateway.StageName != "", "gateway stage name is required")
	check(p.Gateway.RestApiName != "", "gateway restApiName is required")

	return errors.Join(errs...)
}

// subnetCidrBits returns the host bits of each subnet when the VPC block is split
// into one public and one private subnet per availability zone.
func subnetCidrBits(cidr string, maxAzs int) (int, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return 0, fmt.Errorf("network cidr %q: %w", cidr, err)
	}
	if !prefix.Addr().Is4() {
		return 0, fmt.Errorf("network cidr %q is not IPv4", cidr)
	}
	if maxAzs < 1 {
		return 0, fmt.Errorf("maxAzs must be at least 1, got %d", maxAzs)
	}

	subnetPrefix := prefix.Bits() + bits.Len(uint(2*maxAzs-1))
	if subnetPrefix > 28 {
		return 0, fmt.Errorf("network cidr %q is too small for %d subnets", cidr, 2*maxAzs)
	}
	return 32 - subnetPrefix, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
