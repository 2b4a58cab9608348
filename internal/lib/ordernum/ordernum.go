// Package ordernum проверяет номера заказов вида ORD-YYYY-NNNNNN.
// Номера выдаёт база данных из последовательности, приложение их
// только валидирует и разбирает.
package ordernum

import (
	"fmt"
	"regexp"
	"strconv"
)

var re = regexp.MustCompile(`^ORD-(\d{4})-(\d{6})$`)

// Valid сообщает, соответствует ли строка формату номера заказа.
func Valid(s string) bool {
	return re.MatchString(s)
}

// Parse разбирает номер заказа на год выдачи и порядковый номер.
func Parse(s string) (year int, seq int, err error) {
	const op = "ordernum.Parse"
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%s: invalid order number %q", op, s)
	}
	year, _ = strconv.Atoi(m[1])
	seq, _ = strconv.Atoi(m[2])
	return year, seq, nil
}
