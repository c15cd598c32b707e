package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	ExecutionService *ExecutionService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	executionService := InitExecutionService(channel)
	if executionService == nil {
		panic("Failed to initialize Execution produce service")
	}

	produceInstance = &Produce{
		ExecutionService: executionService,
	}

	return produceInstance
}
