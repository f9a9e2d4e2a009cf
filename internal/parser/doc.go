// Package parser разбирает JSON-описания калибровочных графов.
//
// Парсер — внешний по отношению к движку коллаборатор: движок
// получает готовый GraphSpec и сам файлов не читает. Валидация здесь
// поверхностная (синтаксис, уникальность, обязательные поля);
// разрешимость ссылок и ацикличность проверяет GraphBuilder.
package parser
