package gamesession

// Score вычисляет очки за ответ по скорости реакции.
// Кривая линейная в целочисленной арифметике:
//   - мгновенный правильный ответ (t=0) дает maxPoints;
//   - правильный ответ на границе окна (t=limitMs) дает ровно maxPoints/2;
//   - неправильный ответ дает 0 независимо от скорости.
//
// Функция детерминирована: одинаковые входы всегда дают одинаковые очки,
// поэтому пересчет на любом узле сходится к тем же значениям.
func Score(maxPoints int, responseTimeMs, limitMs int64, isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	if maxPoints <= 0 || limitMs <= 0 {
		return 0
	}
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}
	if responseTimeMs > limitMs {
		return 0
	}
	half := int64(maxPoints) / 2
	return int(int64(maxPoints) - half*responseTimeMs/limitMs)
}
