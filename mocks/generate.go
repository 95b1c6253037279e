package mocks

//go:generate mockgen -package amplifymock -destination amplifymock/backend_mock.go github.com/user/amplify-runner/pkg/amplify Backend
//go:generate mockgen -package authmock -destination authmock/provider_mock.go github.com/user/amplify-runner/pkg/auth Provider
//go:generate mockgen -package toolsmock -destination toolsmock/tool_mock.go github.com/user/amplify-runner/pkg/tools Tool,CommandRunner
