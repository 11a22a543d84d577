package stack

import (
	"strconv"

	"github.com/iancoleman/strcase"
)

// Environment variable names the function reads its database settings from.
const (
	EnvDBHost      = "DB_HOST"
	EnvDBPort      = "DB_PORT"
	EnvDBName      = "DB_NAME"
	EnvDBUser      = "DB_USER"
	EnvDBPassword  = "DB_PASSWORD"
	EnvDBSecretArn = "DB_SECRET_ARN"
)

type Function struct {
	Role          ResourceId
	Policy        ResourceId
	SecurityGroup ResourceId
	Function      ResourceId
	AssetBucket   string
	AssetKey      string
}

func (b *builder) function(p Props, net Network, db Database) Function {
	fn := p.Function

	sg := b.securityGroup(net.Vpc, fn.Name+"-security-group",
		"Automatic security group for Lambda Function "+b.path(fn.Name))

	role := b.add(IamRoleType, fn.Name+"-service-role", Properties{
		"AssumeRolePolicyDocument": map[string]any{
			"Version": "2012-10-17",
			"Statement": []any{
				map[string]any{
					"Action":    "sts:AssumeRole",
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": "lambda.amazonaws.com"},
				},
			},
		},
		"ManagedPolicyArns": []any{
			Join("", "arn:", Partition, ":iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"),
			Join("", "arn:", Partition, ":iam::aws:policy/service-role/AWSLambdaVPCAccessExecutionRole"),
		},
	})

	policyName := fn.Name + "-service-role-default-policy"
	policy := b.add(IamPolicyType, policyName, Properties{
		"PolicyName": strcase.ToCamel(policyName),
		"PolicyDocument": map[string]any{
			"Version": "2012-10-17",
			"Statement": []any{
				map[string]any{
					"Action":   []any{"secretsmanager:GetSecretValue", "secretsmanager:DescribeSecret"},
					"Effect":   "Allow",
					"Resource": Ref{Resource: db.Secret},
				},
			},
		},
		"Roles": []any{Ref{Resource: role.ID}},
	})

	assetBucket := strcase.ToCamel(fn.Name + "-asset-bucket")
	assetKey := strcase.ToCamel(fn.Name + "-asset-key")
	b.parameters[assetBucket] = Parameter{Type: "String", Description: "S3 bucket holding the bundle of " + fn.Entry}
	b.parameters[assetKey] = Parameter{Type: "String", Description: "S3 key of the bundle of " + fn.Entry}

	variables := map[string]any{
		EnvDBHost: Attr{Resource: db.Instance, Name: "Endpoint.Address"},
		EnvDBPort: strconv.Itoa(db.Port),
		EnvDBName: db.DatabaseName,
		EnvDBUser: db.Username,
	}
	if fn.InlinePassword {
		variables[EnvDBPassword] = SecretValue{Secret: db.Secret, Key: db.PasswordKey}
	} else {
		variables[EnvDBSecretArn] = Ref{Resource: db.Secret}
	}

	externalModules := make([]any, 0, len(fn.ExternalModules))
	for _, m := range fn.ExternalModules {
		externalModules = append(externalModules, m)
	}

	function := b.add(LambdaFunctionType, fn.Name, Properties{
		"Runtime":    fn.Runtime,
		"Handler":    "index." + fn.Handler,
		"MemorySize": fn.MemorySize,
		"Role":       Attr{Resource: role.ID, Name: "Arn"},
		"Code": map[string]any{
			"S3Bucket": Param(assetBucket),
			"S3Key":    Param(assetKey),
		},
		"VpcConfig": map[string]any{
			"SubnetIds":        net.privateSubnetRefs(),
			"SecurityGroupIds": []any{Attr{Resource: sg.ID, Name: "GroupId"}},
		},
		"Environment": map[string]any{
			"Variables": variables,
		},
	})
	function.DependsOn = []ResourceId{policy.ID, role.ID}
	function.Metadata = map[string]any{
		"aws:asset:path":     fn.Entry,
		"aws:asset:property": "Code",
		"bundling": map[string]any{
			"externalModules":     externalModules,
			"forceDockerBundling": false,
		},
	}

	return Function{
		Role:          role.ID,
		Policy:        policy.ID,
		SecurityGroup: sg.ID,
		Function:      function.ID,
		AssetBucket:   assetBucket,
		AssetKey:      assetKey,
	}
}
