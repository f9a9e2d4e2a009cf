// Package domain содержит доменные типы Autocal.
//
// Здесь определены:
//   - spec.go   — GraphSpec/NodeDef/BaseDef: описание графа калибровок
//   - ref.go    — ParamRef: разбор ссылок "Node:Param"
//   - status.go — статусы запусков обслуживания
//
// Пакет не содержит бизнес-логики и не зависит от других пакетов
// проекта — только типы данных, которыми обмениваются парсер,
// движок и внешние интерфейсы.
package domain
