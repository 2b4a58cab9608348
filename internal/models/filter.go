// Пагинация списочных запросов. Значения приходят из query-параметров,
// граничные случаи нормализует Normalize.
package models

// ListParams представляет параметры постраничного вывода.
type ListParams struct {
	Limit  int // Размер страницы
	Offset int // Смещение от начала выборки
}

// Normalize приводит параметры к допустимым значениям:
// пустой или отрицательный лимит заменяется значением по умолчанию,
// верхняя граница страницы 100.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
