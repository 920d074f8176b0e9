package actor

// Question reads state an actor has captured, typically its last response.
type Question[T any] interface {
	AnsweredBy(a *Actor) (T, error)
}

// QuestionFunc adapts a function to Question.
type QuestionFunc[T any] func(a *Actor) (T, error)

func (f QuestionFunc[T]) AnsweredBy(a *Actor) (T, error) { return f(a) }

// Recall asks the actor q and returns the answer.
func Recall[T any](a *Actor, q Question[T]) (T, error) {
	return q.AnsweredBy(a)
}
