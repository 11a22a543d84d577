package stack

type Gateway struct {
	RestApi    ResourceId
	Proxy      ResourceId
	Methods    []ResourceId
	Deployment ResourceId
	Stage      ResourceId
	Permission ResourceId
}

// URL is the invoke URL of the gateway's stage.
func (g Gateway) URL() Fn {
	return Join("",
		"https://", Ref{Resource: g.RestApi},
		".execute-api.", Region, ".", URLSuffix,
		"/", Ref{Resource: g.Stage}, "/",
	)
}

// gateway exposes the function through a REST API that forwards every method on
// every path, the root included, as a proxy integration.
func (b *builder) gateway(p GatewayProps, fn Function) Gateway {
	api := b.add(RestApiType, p.Name, Properties{
		"Name":        p.RestApiName,
		"Description": p.Description,
	})

	proxy := b.add(ApiResourceType, p.Name+"-proxy", Properties{
		"ParentId":  Attr{Resource: api.ID, Name: "RootResourceId"},
		"PathPart":  "{proxy+}",
		"RestApiId": Ref{Resource: api.ID},
	})

	integration := map[string]any{
		"Type":                  "AWS_PROXY",
		"IntegrationHttpMethod": "POST",
		"Uri": Join("",
			"arn:", Partition, ":apigateway:", Region,
			":lambda:path/2015-03-31/functions/", Attr{Resource: fn.Function, Name: "Arn"}, "/invocations",
		),
	}

	rootMethod := b.add(ApiMethodType, p.Name+"-ANY", Properties{
		"HttpMethod":        "ANY",
		"ResourceId":        Attr{Resource: api.ID, Name: "RootResourceId"},
		"RestApiId":         Ref{Resource: api.ID},
		"AuthorizationType": "NONE",
		"Integration":       integration,
	})
	proxyMethod := b.add(ApiMethodType, p.Name+"-proxy-ANY", Properties{
		"HttpMethod":        "ANY",
		"ResourceId":        Ref{Resource: proxy.ID},
		"RestApiId":         Ref{Resource: api.ID},
		"AuthorizationType": "NONE",
		"Integration":       integration,
	})

	deployment := b.add(ApiDeploymentType, p.Name+"-deployment", Properties{
		"RestApiId":   Ref{Resource: api.ID},
		"Description": "Deployment of " + p.RestApiName,
	})
	deployment.DependsOn = []ResourceId{proxy.ID, rootMethod.ID, proxyMethod.ID}

	stage := b.add(ApiStageType, p.Name+"-stage-"+p.StageName, Properties{
		"RestApiId":    Ref{Resource: api.ID},
		"DeploymentId": Ref{Resource: deployment.ID},
		"StageName":    p.StageName,
	})

	permission := b.add(LambdaPermissionType, p.Name+"-invoke-permission", Properties{
		"Action":       "lambda:InvokeFunction",
		"FunctionName": Attr{Resource: fn.Function, Name: "Arn"},
		"Principal":    "apigateway.amazonaws.com",
		"SourceArn": Join("",
			"arn:", Partition, ":execute-api:", Region, ":", AccountId, ":", Ref{Resource: api.ID}, "/*/*",
		),
	})

	return Gateway{
		RestApi:    api.ID,
		Proxy:      proxy.ID,
		Methods:    []ResourceId{rootMethod.ID, proxyMethod.ID},
		Deployment: deployment.ID,
		Stage:      stage.ID,
		Permission: permission.ID,
	}
}
