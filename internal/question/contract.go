package question

import (
	"errors"
	"net/http"

	"pkt.systems/screenplay/internal/actor"
	"pkt.systems/screenplay/internal/contract"
	"pkt.systems/screenplay/internal/sender"
)

// Documented answers whether the last response is described by c: the
// operation exists, the status is listed and a JSON body fits the schema.
// method is the verb the last interaction used.
func Documented(c *contract.Contract, method string) actor.Question[bool] {
	return fromLast(func(r *sender.Response) (bool, error) {
		err := CheckContract(c, method, r)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, contract.ErrUnknownOperation),
			errors.Is(err, contract.ErrUndocumentedStatus),
			errors.Is(err, contract.ErrSchemaMismatch):
			return false, nil
		default:
			return false, err
		}
	})
}

// CheckContract returns the reason r is not described by c, nil when it is.
func CheckContract(c *contract.Contract, method string, r *sender.Response) error {
	if method == "" {
		method = http.MethodGet
	}
	return c.Check(method, r.URI(), r.StatusCode(), r.Header().Get("Content-Type"), r.Body())
}
