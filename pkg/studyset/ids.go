package studyset

import "fmt"

func idWithPrefix(prefix string, i int) string {
	return fmt.Sprintf("%s-%03d", prefix, i)
}
